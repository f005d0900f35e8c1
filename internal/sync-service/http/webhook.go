package httpapi

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/billing/stripe"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

const maxWebhookBody = 1 << 20

// stripeWebhook valida a assinatura, grava o estado da assinatura e publica a mudança uma vez por event id
func (a *API) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	ev, err := stripe.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), a.Opts.StripeWebhookSecret, a.Opts.StripeTolerance)
	if err != nil {
		a.Log.Warn("stripe event rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	log := a.Log.With(zap.String("stripe_event_id", ev.ID), zap.String("type", string(ev.Type)))

	change, ok, err := stripe.ToChange(ev)
	if err != nil {
		log.Warn("stripe event rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "ignored": true})
		return
	}

	userID, err := a.Billing.UpdateSubscription(r.Context(), repo.Subscription{
		UserID:         change.UserID,
		CustomerID:     change.CustomerID,
		SubscriptionID: change.SubscriptionID,
		Status:         change.Status,
	})
	switch {
	case errors.Is(err, repo.ErrNotFound):
		// perfil ainda não existe; Stripe não deve reenviar
		log.Warn("subscription change for unknown profile", zap.String("customer_id", change.CustomerID))
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "matched": false})
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// gravado só após o update: falha acima deixa o Stripe reenviar
	first, err := a.Billing.MarkStripeEvent(r.Context(), ev.ID, string(ev.Type))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !first {
		writeJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
		return
	}

	if a.Subs != nil {
		err := a.Subs.PublishSubscriptionChanged(r.Context(), events.SubscriptionChanged{
			UserID:         userID,
			CustomerID:     change.CustomerID,
			SubscriptionID: change.SubscriptionID,
			Status:         change.Status,
			StripeEventID:  ev.ID,
		})
		if err != nil {
			log.Warn("publish subscription_changed failed", zap.Error(err))
		}
	}

	log.Info("subscription updated", zap.String("user_id", userID), zap.String("status", change.Status))
	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}

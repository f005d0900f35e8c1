package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/shared/auth"
	"github.com/radieske/fade-sync-platform/internal/shared/session"
	"github.com/radieske/fade-sync-platform/internal/sync-service/orchestrator"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/internal/sync-service/stats"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// Syncer é o orquestrador visto pelos handlers
type Syncer interface {
	SyncUser(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
	ClearAndSyncAll(ctx context.Context, userIDs []string) (orchestrator.BulkReport, error)
	Recalculate(ctx context.Context, userID string) (stats.Stats, stats.Confidence, error)
}

// SessionStore carrega e atualiza a sessão do usuário
type SessionStore interface {
	Load(ctx context.Context, userID string) (session.Session, error)
	MarkOTPVerified(ctx context.Context, userID string, at time.Time) error
}

// ReadStore são as leituras do endpoint público
type ReadStore interface {
	GetPublicProfile(ctx context.Context, userID string) (repo.PublicProfile, error)
	GetConfidenceScore(ctx context.Context, userID string) (repo.ConfidenceScore, error)
	ListRecentBets(ctx context.Context, userID string, limit int) ([]repo.BetRow, error)
}

// PublicCache guarda a resposta pública por alguns segundos
type PublicCache interface {
	GetPublic(ctx context.Context, userID string, dst any) (bool, error)
	SetPublic(ctx context.Context, userID string, v any) error
	Invalidate(ctx context.Context, userID string) error
	GetConfidence(ctx context.Context, userID string) (events.Confidence, bool, error)
}

// BillingStore grava o estado de assinatura vindo do Stripe
type BillingStore interface {
	MarkStripeEvent(ctx context.Context, eventID, eventType string) (bool, error)
	UpdateSubscription(ctx context.Context, s repo.Subscription) (string, error)
}

// SubscriptionPublisher publica subscription_changed
type SubscriptionPublisher interface {
	PublishSubscriptionChanged(ctx context.Context, e events.SubscriptionChanged) error
}

// Options são segredos e limites dos endpoints
type Options struct {
	AdminSecret         string
	JWT                 auth.Verifier
	StripeWebhookSecret string
	StripeTolerance     time.Duration
	AllowedOrigin       string
	OTPSkipWindow       time.Duration
	RecentBetsLimit     int
}

// API expõe as funções HTTP do sync-service
type API struct {
	Log      *zap.Logger
	Sync     Syncer
	Sessions SessionStore
	Read     ReadStore
	Cache    PublicCache // opcional
	Billing  BillingStore
	Subs     SubscriptionPublisher // opcional
	WS       http.HandlerFunc      // opcional
	Opts     Options

	now func() time.Time
}

// Router monta as rotas sob /functions/v1
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(a.cors)

	r.Route("/functions/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(a.requireUser)
			r.Post("/sync-bets", a.syncBets)
			r.Post("/calculate-bet-statline", a.calculateStatline)
			r.Post("/otp-verified", a.otpVerified)
		})
		r.With(a.requireAdmin).Post("/clear-and-sync-bets", a.clearAndSync)
		r.Get("/get-public-betting-data", a.publicBettingData)
		r.Post("/stripe-webhook", a.stripeWebhook)
	})
	if a.WS != nil {
		r.Get("/ws", a.WS)
	}
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (a *API) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}

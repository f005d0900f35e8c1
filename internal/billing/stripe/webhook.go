// Package stripe verifica e interpreta os webhooks de assinatura do Stripe.
package stripe

import (
	"fmt"
	"time"

	stripeapi "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// DefaultTolerance é a diferença máxima aceita entre o timestamp assinado e o relógio local
const DefaultTolerance = webhook.DefaultTolerance

// Erros de assinatura devolvidos por ConstructEvent
var (
	ErrMissingHeader    = webhook.ErrNotSigned
	ErrInvalidHeader    = webhook.ErrInvalidHeader
	ErrNoValidSignature = webhook.ErrNoValidSignature
	ErrTooOld           = webhook.ErrTooOld
)

// ConstructEvent valida o Stripe-Signature e decodifica o evento.
// A versão de API do evento não é checada: só lemos campos estáveis do objeto.
func ConstructEvent(payload []byte, header, secret string, tolerance time.Duration) (stripeapi.Event, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	ev, err := webhook.ConstructEventWithOptions(payload, header, secret, webhook.ConstructEventOptions{
		Tolerance:                tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripeapi.Event{}, err
	}
	if ev.ID == "" || ev.Type == "" {
		return stripeapi.Event{}, fmt.Errorf("stripe: event without id/type")
	}
	return ev, nil
}

// SignatureHeader monta um header válido (testes e ferramentas locais)
func SignatureHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: at,
	}).Header
}

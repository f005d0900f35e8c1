package events

import "time"

// Evento emitido pelo webhook do Stripe quando a assinatura de um usuário muda de estado.
type SubscriptionChanged struct {
	UserID         string    `json:"user_id,omitempty"`
	CustomerID     string    `json:"customer_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	Status         string    `json:"status"` // active | past_due | canceled | ...
	StripeEventID  string    `json:"stripe_event_id"`
	Ts             time.Time `json:"ts"`
}

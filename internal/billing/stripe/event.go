package stripe

import (
	"encoding/json"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v82"
)

// Tipos de evento tratados
const (
	EventCheckoutCompleted       = string(stripeapi.EventTypeCheckoutSessionCompleted)
	EventSubscriptionCreated     = string(stripeapi.EventTypeCustomerSubscriptionCreated)
	EventSubscriptionUpdated     = string(stripeapi.EventTypeCustomerSubscriptionUpdated)
	EventSubscriptionDeleted     = string(stripeapi.EventTypeCustomerSubscriptionDeleted)
	EventInvoicePaymentFailed    = string(stripeapi.EventTypeInvoicePaymentFailed)
	EventInvoicePaymentSucceeded = string(stripeapi.EventTypeInvoicePaymentSucceeded)
)

// Status gravados em user_profiles.subscription_status
const (
	StatusActive   = string(stripeapi.SubscriptionStatusActive)
	StatusPastDue  = string(stripeapi.SubscriptionStatusPastDue)
	StatusCanceled = string(stripeapi.SubscriptionStatusCanceled)
)

// Change é a mudança de assinatura extraída de um evento
type Change struct {
	EventID        string
	EventType      string
	UserID         string // vazio quando só o customer é conhecido
	CustomerID     string
	SubscriptionID string
	Status         string
}

// ToChange mapeia o evento para a mudança de assinatura; ok=false para tipos ignorados
func ToChange(ev stripeapi.Event) (Change, bool, error) {
	ch := Change{EventID: ev.ID, EventType: string(ev.Type)}

	var err error
	switch ch.EventType {
	case EventCheckoutCompleted:
		var s stripeapi.CheckoutSession
		if err = decodeObject(ev, &s); err == nil {
			ch.UserID = s.ClientReferenceID
			if ch.UserID == "" {
				ch.UserID = s.Metadata["user_id"]
			}
			ch.CustomerID = customerID(s.Customer)
			if s.Subscription != nil {
				ch.SubscriptionID = s.Subscription.ID
			}
			ch.Status = StatusActive
		}
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var s stripeapi.Subscription
		if err = decodeObject(ev, &s); err == nil {
			ch.UserID = s.Metadata["user_id"]
			ch.CustomerID = customerID(s.Customer)
			ch.SubscriptionID = s.ID
			ch.Status = string(s.Status)
			if ch.EventType == EventSubscriptionDeleted {
				ch.Status = StatusCanceled
			}
		}
	case EventInvoicePaymentFailed, EventInvoicePaymentSucceeded:
		var inv stripeapi.Invoice
		if err = decodeObject(ev, &inv); err == nil {
			ch.UserID = inv.Metadata["user_id"]
			ch.CustomerID = customerID(inv.Customer)
			if p := inv.Parent; p != nil && p.SubscriptionDetails != nil {
				if ch.UserID == "" {
					ch.UserID = p.SubscriptionDetails.Metadata["user_id"]
				}
				if p.SubscriptionDetails.Subscription != nil {
					ch.SubscriptionID = p.SubscriptionDetails.Subscription.ID
				}
			}
			ch.Status = StatusActive
			if ch.EventType == EventInvoicePaymentFailed {
				ch.Status = StatusPastDue
			}
		}
	default:
		return Change{}, false, nil
	}
	if err != nil {
		return Change{}, false, fmt.Errorf("stripe: decode %s object: %w", ev.Type, err)
	}

	if ch.UserID == "" && ch.CustomerID == "" {
		return Change{}, false, fmt.Errorf("stripe: %s %s without user or customer", ev.Type, ev.ID)
	}
	if ch.Status == "" {
		return Change{}, false, fmt.Errorf("stripe: %s %s without status", ev.Type, ev.ID)
	}
	return ch, true, nil
}

func decodeObject(ev stripeapi.Event, dst any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("empty data.object")
	}
	return json.Unmarshal(ev.Data.Raw, dst)
}

func customerID(c *stripeapi.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

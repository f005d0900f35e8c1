package producer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/radieske/fade-sync-platform/internal/shared/kafka"
	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// MessageWriter é o lado de escrita do *kafka.Writer
type MessageWriter = kafka.MessageWriter

// KafkaPublisher publica os eventos do sync-service; chave = user_id
type KafkaPublisher struct {
	BetsSynced          MessageWriter
	SubscriptionChanged MessageWriter
}

func NewKafkaPublisher(betsSynced, subscriptionChanged MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{BetsSynced: betsSynced, SubscriptionChanged: subscriptionChanged}
}

func (p *KafkaPublisher) PublishBetsSynced(ctx context.Context, e events.BetsSynced) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	return write(ctx, p.BetsSynced, e.UserID, e)
}

func (p *KafkaPublisher) PublishSubscriptionChanged(ctx context.Context, e events.SubscriptionChanged) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	key := e.UserID
	if key == "" {
		key = e.CustomerID
	}
	return write(ctx, p.SubscriptionChanged, key, e)
}

func write(ctx context.Context, w MessageWriter, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return kafka.WriteJSON(ctx, w, key, b)
}

package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// SubscriptionProcessor consome subscription_changed e mantém o status em cache
type SubscriptionProcessor struct {
	Log    *zap.Logger
	Reader MessageReader
	Cache  ConfidenceCache

	OnConsumed func(topic string)
	OnError    func(string)
}

func (p *SubscriptionProcessor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("sub_read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed(m.Topic)
		}
		p.Handle(ctx, m)
	}
}

func (p *SubscriptionProcessor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.SubscriptionChanged
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid subscription_changed message", zap.Error(err))
		p.fail("sub_decode")
		return
	}
	if ev.UserID == "" {
		// perfil ainda não vinculado ao customer
		return
	}
	if err := p.Cache.SetSubscription(ctx, ev.UserID, ev.Status); err != nil {
		p.Log.Warn("redis set subscription failed", zap.String("user_id", ev.UserID), zap.Error(err))
		p.fail("sub_cache")
	}
}

func (p *SubscriptionProcessor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// StartRedisSubscriber escuta o canal de broadcast e repassa cada FadeUpdate ao hub
func StartRedisSubscriber(ctx context.Context, r *redis.Client, channel string, hub *Hub, log *zap.Logger) {
	sub := r.Subscribe(ctx, channel)
	ch := sub.Channel()
	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				dispatch(hub, log, []byte(msg.Payload))
			}
		}
	}()
}

func dispatch(hub *Hub, log *zap.Logger, payload []byte) {
	var upd events.FadeUpdate
	if err := json.Unmarshal(payload, &upd); err != nil {
		log.Warn("ws subscriber: invalid payload", zap.Error(err))
		return
	}
	if upd.UserID == "" {
		return
	}
	hub.Broadcast(upd)
}

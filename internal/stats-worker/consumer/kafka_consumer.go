package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/pkg/contracts/events"
)

// MessageReader é o lado de leitura do *kafka.Reader
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// MessageWriter recebe mensagens que não puderam ser decodificadas
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ConfidenceCache é o cache de score e assinatura
type ConfidenceCache interface {
	SetConfidence(ctx context.Context, userID string, c events.Confidence) error
	SetSubscription(ctx context.Context, userID, status string) error
}

// Broadcaster envia a atualização aos clientes WebSocket
type Broadcaster interface {
	Broadcast(ctx context.Context, upd events.FadeUpdate) error
}

// Processor consome bets_synced, atualiza o cache e dispara o broadcast.
// Callbacks de métricas podem ser usadas para monitoramento de cada etapa.
type Processor struct {
	Log         *zap.Logger
	Reader      MessageReader
	DLQ         MessageWriter // opcional
	Cache       ConfidenceCache
	Broadcaster Broadcaster

	OnConsumed  func(topic string) // métricas (counter++)
	OnCached    func()             // métricas
	OnBroadcast func()             // métricas
	OnError     func(string)       // métricas por fase

	// intervalo após falha de leitura
	ReadBackoff time.Duration
}

// Run inicia o loop principal de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	backoff := p.ReadBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	for {
		m, err := p.Reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka read failed", zap.Error(err))
			p.fail("read")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed(m.Topic)
		}
		p.Handle(ctx, m)
	}
}

// Handle processa uma mensagem de bets_synced
func (p *Processor) Handle(ctx context.Context, m kafka.Message) {
	var ev events.BetsSynced
	if err := json.Unmarshal(m.Value, &ev); err != nil || ev.UserID == "" {
		p.Log.Warn("invalid bets_synced message", zap.Error(err), zap.ByteString("key", m.Key))
		p.fail("decode")
		p.deadLetter(ctx, m)
		return
	}
	log := p.Log.With(zap.String("user_id", ev.UserID), zap.String("source", ev.Source))

	// cache e broadcast são independentes: falha em um não bloqueia o outro
	if err := p.Cache.SetConfidence(ctx, ev.UserID, ev.Confidence); err != nil {
		log.Warn("redis set confidence failed", zap.Error(err))
		p.fail("cache")
	} else if p.OnCached != nil {
		p.OnCached()
	}

	if err := p.Broadcaster.Broadcast(ctx, events.FadeUpdateFrom(ev)); err != nil {
		log.Warn("fade update broadcast failed", zap.Error(err))
		p.fail("broadcast")
		return
	}
	if p.OnBroadcast != nil {
		p.OnBroadcast()
	}
	log.Debug("fade confidence propagated", zap.Float64("score", ev.Confidence.Score))
}

func (p *Processor) deadLetter(ctx context.Context, m kafka.Message) {
	if p.DLQ == nil {
		return
	}
	dl := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(m.Headers,
			kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, dl); err != nil {
		p.Log.Warn("dlq write failed", zap.Error(err))
		p.fail("dlq")
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

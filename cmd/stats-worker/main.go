package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	sharedcache "github.com/radieske/fade-sync-platform/internal/shared/cache"
	"github.com/radieske/fade-sync-platform/internal/shared/config"
	"github.com/radieske/fade-sync-platform/internal/shared/kafka"
	"github.com/radieske/fade-sync-platform/internal/shared/logger"
	"github.com/radieske/fade-sync-platform/internal/shared/metrics"
	"github.com/radieske/fade-sync-platform/internal/stats-worker/cache"
	"github.com/radieske/fade-sync-platform/internal/stats-worker/consumer"
	"github.com/radieske/fade-sync-platform/internal/stats-worker/pubsub"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	rcache := cache.NewRedisCache(redisClient, cfg.Sync.ConfidenceTTL)
	broadcaster := pubsub.NewRedisBroadcaster(redisClient, cfg.RedisPubSubChannel)

	// Consumers Kafka (consumer group stats-worker)
	betsReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetsSynced, "stats-worker")
	defer betsReader.Close()
	subsReader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicSubscriptionChanged, "stats-worker")
	defer subsReader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetsSyncedDLQ)
	defer dlq.Close()

	m := metrics.NewWorkerMetrics(prometheus.DefaultRegisterer)
	onConsumed := func(topic string) { m.Consumed.WithLabelValues(topic).Inc() }
	onError := func(stage string) { m.Errors.WithLabelValues(stage).Inc() }

	proc := &consumer.Processor{
		Log:         log,
		Reader:      betsReader,
		DLQ:         dlq,
		Cache:       rcache,
		Broadcaster: broadcaster,
		OnConsumed:  onConsumed,
		OnCached:    func() { m.Cached.Inc() },
		OnBroadcast: func() { m.Broadcast.Inc() },
		OnError:     onError,
	}
	subs := &consumer.SubscriptionProcessor{
		Log:        log,
		Reader:     subsReader,
		Cache:      rcache,
		OnConsumed: onConsumed,
		OnError:    onError,
	}

	// Servidor HTTP para métricas e health check
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("stats-worker started")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return proc.Run(gctx) })
	g.Go(func() error { return subs.Run(gctx) })
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("stats-worker stopped")
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/billing/stripe"
	"github.com/radieske/fade-sync-platform/internal/shared/auth"
	sharedcache "github.com/radieske/fade-sync-platform/internal/shared/cache"
	"github.com/radieske/fade-sync-platform/internal/shared/config"
	"github.com/radieske/fade-sync-platform/internal/shared/db"
	"github.com/radieske/fade-sync-platform/internal/shared/kafka"
	"github.com/radieske/fade-sync-platform/internal/shared/logger"
	"github.com/radieske/fade-sync-platform/internal/shared/metrics"
	"github.com/radieske/fade-sync-platform/internal/shared/session"
	"github.com/radieske/fade-sync-platform/internal/sharpsports"
	"github.com/radieske/fade-sync-platform/internal/sync-service/cache"
	httpapi "github.com/radieske/fade-sync-platform/internal/sync-service/http"
	"github.com/radieske/fade-sync-platform/internal/sync-service/orchestrator"
	"github.com/radieske/fade-sync-platform/internal/sync-service/producer"
	"github.com/radieske/fade-sync-platform/internal/sync-service/repo"
	"github.com/radieske/fade-sync-platform/internal/sync-service/ws"
)

// sessões de vínculo expiram se o usuário sumir por um mês
const sessionTTL = 30 * 24 * time.Hour

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Inicializa dependências: Postgres, Redis e Kafka
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	betsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetsSynced)
	defer betsWriter.Close()
	subsWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicSubscriptionChanged)
	defer subsWriter.Close()
	publisher := producer.NewKafkaPublisher(betsWriter, subsWriter)

	store := repo.NewPostgres(pg)
	sessions := session.NewRedisStore(redisClient, sessionTTL)
	publicCache := cache.New(redisClient, cfg.Sync.PublicCacheTTL)

	ss := cfg.SharpSports
	provider := sharpsports.NewClient(ss.PublicKey, ss.PrivateKey,
		sharpsports.WithBaseURL(ss.BaseURL),
		sharpsports.WithUIBaseURL(ss.UIBaseURL),
		sharpsports.WithHTTPClient(&http.Client{Timeout: ss.Timeout}),
		sharpsports.WithRateLimit(ss.RateLimit, max(1, int(ss.RateLimit))),
		sharpsports.WithPageSize(ss.PageSize),
	)

	// Métricas Prometheus do sync
	m := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)

	svc := &orchestrator.Service{
		Log:       log,
		Provider:  provider,
		Store:     store,
		Sessions:  sessions,
		Publisher: publisher,
		Opts: orchestrator.Options{
			PollInterval:     cfg.Sync.PollInterval,
			PollTimeout:      cfg.Sync.PollTimeout,
			InterUserDelay:   cfg.Sync.InterUserDelay,
			RateLimitDelay:   cfg.Sync.RateLimitDelay,
			InsertChunkSize:  cfg.Sync.InsertChunkSize,
			MaxPages:         ss.MaxPages,
			ProfileSyncLimit: cfg.Sync.ProfileSyncLimit,
		},
		OnStatus:        func(st string) { m.SyncsByStatus.WithLabelValues(st).Inc() },
		OnProviderError: func(k sharpsports.ErrorKind) { m.ProviderErrors.WithLabelValues(string(k)).Inc() },
		OnRowsUpserted:  func(n int) { m.RowsUpserted.Add(float64(n)) },
		OnSyncDuration:  func(d time.Duration) { m.SyncDuration.Observe(d.Seconds()) },
		OnBulkUser:      func(r string) { m.BulkUsersByStep.WithLabelValues(r).Inc() },
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Hub WebSocket alimentado pelo canal Redis que o stats-worker publica
	hub := ws.NewHub(log, func(r *http.Request) bool {
		return cfg.AllowedOrigin == "*" || r.Header.Get("Origin") == cfg.AllowedOrigin
	})
	ws.StartRedisSubscriber(ctx, redisClient, cfg.RedisPubSubChannel, hub, log)

	api := &httpapi.API{
		Log:      log,
		Sync:     svc,
		Sessions: sessions,
		Read:     store,
		Cache:    publicCache,
		Billing:  store,
		Subs:     publisher,
		WS:       hub.HandleWS,
		Opts: httpapi.Options{
			AdminSecret:         cfg.AdminSecret,
			JWT:                 auth.Verifier{Secret: []byte(cfg.SupabaseJWTSecret)},
			StripeWebhookSecret: cfg.StripeWebhookSecret,
			StripeTolerance:     stripe.DefaultTolerance,
			AllowedOrigin:       cfg.AllowedOrigin,
			OTPSkipWindow:       cfg.Sync.OTPSkipWindow,
			RecentBetsLimit:     cfg.Sync.RecentBetsLimit,
		},
	}

	// Servidor HTTP para métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("port", cfg.MetricsPort))

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("sync-service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("sync-service shutting down")

	// syncs em andamento têm até 45s (poll de 30s + fetch) pra terminar
	shutdownCtx, stop := context.WithTimeout(context.Background(), 45*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("sync-service stopped")
}

package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/fade-sync-platform/internal/shared/config"
	"github.com/radieske/fade-sync-platform/internal/shared/logger"
	"github.com/radieske/fade-sync-platform/internal/shared/metrics"
	simulator "github.com/radieske/fade-sync-platform/internal/sharpsports-simulator"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// SIM_REFRESH_STATE força um bucket de refresh (ex.: otpRequired) para testar os fluxos localmente
	sim := simulator.NewServer(log, os.Getenv("SIM_REFRESH_STATE"))
	if n, err := strconv.Atoi(os.Getenv("SIM_REFRESH_POLLS")); err == nil && n >= 0 {
		sim.RefreshPolls = n
	}
	sim.Requests = simulator.NewRequestsCounter(prometheus.DefaultRegisterer)

	// ==== MUX DE MÉTRICAS (/healthz, /metrics)
	metrics.StartMetricsServer(cfg.MetricsPort, nil)
	log.Info("sharpsports simulator (metrics) running", zap.String("port", cfg.MetricsPort))

	// Servidor público (API /v1)
	publicAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	log.Info("sharpsports simulator (public) running",
		zap.String("addr", publicAddr),
		zap.String("refresh_state", sim.RefreshState),
	)
	if err := http.ListenAndServe(publicAddr, sim.Router()); err != nil {
		log.Fatal("public server error", zap.Error(err))
	}
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics agrupa os coletores do sync-service
type SyncMetrics struct {
	SyncsByStatus   *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	RowsUpserted    prometheus.Counter
	SyncDuration    prometheus.Histogram
	BulkUsersByStep *prometheus.CounterVec
}

// NewSyncMetrics cria e registra os coletores no registerer informado
func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		SyncsByStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fade_sync_total",
			Help: "syncs finalizados por status (success, otp_required, relink_required, ...)",
		}, []string{"status"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fade_sync_provider_errors_total",
			Help: "erros da API SharpSports por tipo",
		}, []string{"kind"}),
		RowsUpserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fade_sync_rows_upserted_total",
			Help: "linhas de apostas gravadas",
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fade_sync_duration_seconds",
			Help:    "duração de um sync completo",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		BulkUsersByStep: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fade_bulk_sync_users_total",
			Help: "usuários processados no clear-and-sync por resultado",
		}, []string{"result"}),
	}
	reg.MustRegister(m.SyncsByStatus, m.ProviderErrors, m.RowsUpserted, m.SyncDuration, m.BulkUsersByStep)
	return m
}

// WorkerMetrics agrupa os coletores do stats-worker
type WorkerMetrics struct {
	Consumed  *prometheus.CounterVec
	Cached    prometheus.Counter
	Broadcast prometheus.Counter
	Errors    *prometheus.CounterVec
}

func NewWorkerMetrics(reg prometheus.Registerer) *WorkerMetrics {
	m := &WorkerMetrics{
		Consumed:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "stats_worker_messages_consumed_total", Help: "mensagens consumidas por tópico"}, []string{"topic"}),
		Cached:    prometheus.NewCounter(prometheus.CounterOpts{Name: "stats_worker_cache_sets_total", Help: "sets no cache"}),
		Broadcast: prometheus.NewCounter(prometheus.CounterOpts{Name: "stats_worker_broadcasts_total", Help: "updates enviados ao pub/sub"}),
		Errors:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "stats_worker_errors_total", Help: "erros por estágio"}, []string{"stage"}),
	}
	reg.MustRegister(m.Consumed, m.Cached, m.Broadcast, m.Errors)
	return m
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AportesProcessados = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aportes_processados_total",
		Help: "Total number of aportes processed",
	}, []string{"operation", "status"})

	ImportacaoDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "importacao_duration_seconds",
		Help:    "Duration of import processing",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	CotacaoLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cotacao_lookups_total",
		Help: "Total number of exchange rate lookups",
	}, []string{"provider", "status"})

	BackfillRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backfill_rows_total",
		Help: "Total number of rows touched by the USD backfill sweep",
	}, []string{"status"})

	CotacaoAtualTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cotacao_atual_timestamp_seconds",
		Help: "Unix timestamp of the last successful current-rate refresh",
	})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

func RecordAporteProcessado(operation, status string) {
	AportesProcessados.WithLabelValues(operation, status).Inc()
}

func RecordCotacaoLookup(provider, status string) {
	CotacaoLookups.WithLabelValues(provider, status).Inc()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}

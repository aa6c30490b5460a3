package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigator_runs_total",
			Help: "Total investigation runs",
		},
		[]string{"stop"}, // exhausted|threshold|cancelled
	)

	ItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "investigator_items_total",
			Help: "Total names processed",
		},
		[]string{"result"}, // matched|failed
	)

	ItemDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "investigator_item_duration_seconds",
			Help:    "Duration of processing one name, retries included",
			Buckets: prometheus.DefBuckets,
		},
	)

	FetchAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "investigator_fetch_attempts",
			Help:    "Fetch attempts made per processed name",
			Buckets: []float64{1, 2, 3, 5, 8, 13},
		},
	)

	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "investigator_retries_total",
			Help: "Retries scheduled after transient failures",
		},
	)
)

func init() {
	prometheus.MustRegister(RunsTotal)
	prometheus.MustRegister(ItemsTotal)
	prometheus.MustRegister(ItemDuration)
	prometheus.MustRegister(FetchAttempts)
	prometheus.MustRegister(RetriesTotal)
}

func Register(mux *http.ServeMux) {
	mux.Handle("/metrics", promhttp.Handler())
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycles_total",
		Help: "Number of completed trading cycles",
	})

	CycleFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_cycle_failures_total",
		Help: "Number of cycles aborted by an error or panic",
	})

	Decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bot_decisions_total",
		Help: "Trade decisions by outcome",
	}, []string{"outcome"})

	UpstreamErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_upstream_errors_total",
		Help: "Number of failed market data or portfolio fetches",
	})

	StaleQuotes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_stale_quotes_total",
		Help: "Number of quotes served stale after a failed refresh",
	})

	CacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_price_cache_hits_total",
		Help: "Number of quote lookups served from the cache",
	})

	CacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_price_cache_misses_total",
		Help: "Number of quote lookups that required an API fetch",
	})

	CycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bot_cycle_duration_seconds",
		Help:    "Time to run one full trading cycle",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleFailures,
		Decisions,
		UpstreamErrors,
		StaleQuotes,
		CacheHits,
		CacheMisses,
		CycleDuration,
	)
}

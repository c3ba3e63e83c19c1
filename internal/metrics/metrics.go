package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry exposes counters for the silent row loss that pervades the
// pipeline, so shrinking output is observable without changing contracts.
type Registry struct {
	reg *prometheus.Registry

	RunsTotal    prometheus.Counter
	RunsFailed   prometheus.Counter
	RowsJoined   prometheus.Counter
	RowsEnriched prometheus.Counter

	RowsDropped *prometheus.CounterVec // by reason

	MarketFetchFailures  prometheus.Counter
	WeatherCallAttempts  prometheus.Counter
	WeatherGroupsSkipped prometheus.Counter
	WeatherGroupsFailed  prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_runs_total"})
	runsFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_runs_failed_total"})
	joined := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_rows_joined_total"})
	enriched := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_rows_enriched_total"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "enrich_rows_dropped_total"}, []string{"reason"})

	marketFailures := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_market_fetch_failures_total"})
	weatherAttempts := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_weather_call_attempts_total"})
	weatherSkipped := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_weather_groups_skipped_total"})
	weatherFailed := prometheus.NewCounter(prometheus.CounterOpts{Name: "enrich_weather_groups_failed_total"})

	r.MustRegister(runs, runsFailed, joined, enriched, dropped, marketFailures, weatherAttempts, weatherSkipped, weatherFailed)
	return &Registry{
		reg:                  r,
		RunsTotal:            runs,
		RunsFailed:           runsFailed,
		RowsJoined:           joined,
		RowsEnriched:         enriched,
		RowsDropped:          dropped,
		MarketFetchFailures:  marketFailures,
		WeatherCallAttempts:  weatherAttempts,
		WeatherGroupsSkipped: weatherSkipped,
		WeatherGroupsFailed:  weatherFailed,
	}
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

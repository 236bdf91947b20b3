// Package metrics exposes import counters in the Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pkordes/rideshare-importer/internal/domain"
)

// Registry owns the importer's collectors and implements service.Recorder.
type Registry struct {
	reg          *prometheus.Registry
	Trips        *prometheus.CounterVec
	Runs         *prometheus.CounterVec
	RunDuration  prometheus.Histogram
	LastImported prometheus.Gauge
}

// NewRegistry builds a Registry with Go runtime and process collectors.
func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	trips := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rideshare_import_trips_total",
		Help: "Trips processed by import runs, by outcome.",
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rideshare_import_runs_total",
		Help: "Import runs, by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rideshare_import_run_duration_seconds",
		Help:    "Wall time of completed import runs.",
		Buckets: prometheus.DefBuckets,
	})
	last := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rideshare_import_last_run_imported",
		Help: "Trips created or updated by the most recent completed run.",
	})

	r.MustRegister(trips, runs, duration, last,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Registry{
		reg:          r,
		Trips:        trips,
		Runs:         runs,
		RunDuration:  duration,
		LastImported: last,
	}
}

// ObserveTrip counts one processed trip.
func (r *Registry) ObserveTrip(outcome domain.Outcome) {
	r.Trips.WithLabelValues(string(outcome)).Inc()
}

// ObserveRun records the end of a run. Failed runs are counted but their
// partial duration is not observed.
func (r *Registry) ObserveRun(summary domain.ImportSummary, err error) {
	if err != nil {
		r.Runs.WithLabelValues("error").Inc()
		return
	}
	r.Runs.WithLabelValues("ok").Inc()
	r.RunDuration.Observe(summary.Duration.Seconds())
	r.LastImported.Set(float64(summary.Imported()))
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

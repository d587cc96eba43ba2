// Package metrics exports filter engine events as prometheus metrics.
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ivked85/filterman/internal/filter"
)

const (
	promNamespace = "filterman"
	promSubsystem = "filter"
)

// Prometheus implements [filter.Observer] on top of prometheus collectors.
type Prometheus struct {
	stepsM    *prometheus.CounterVec
	errorsM   *prometheus.CounterVec
	durationM *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Prometheus, error) {
	p := &Prometheus{
		stepsM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "steps_total",
			Help:      "Number of filter steps by host, filter and strategy.",
		}, []string{"host", "filter", "strategy"}),
		errorsM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "errors_total",
			Help:      "Number of failed filter steps by host and filter.",
		}, []string{"host", "filter"}),
		durationM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: promNamespace,
			Subsystem: promSubsystem,
			Name:      "run_duration_seconds",
			Help:      "Duration of a full filter run by host.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"host"}),
	}

	for _, c := range []prometheus.Collector{p.stepsM, p.errorsM, p.durationM} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering filter metrics: %w", err)
		}
	}

	return p, nil
}

// ObserveStep counts a step. Failed steps are counted as errors only.
func (p *Prometheus) ObserveStep(ev filter.StepEvent) {
	if ev.Err != nil {
		p.errorsM.WithLabelValues(ev.Host, ev.Filter).Inc()
		return
	}

	p.stepsM.WithLabelValues(ev.Host, ev.Filter, string(ev.Strategy)).Inc()
}

// ObserveRun records the run duration.
func (p *Prometheus) ObserveRun(ev filter.RunEvent) {
	p.durationM.WithLabelValues(ev.Host).Observe(ev.Duration.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ filter.Observer = (*Prometheus)(nil)

// Package metrics exposes Prometheus counters for the outlet.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the outlet collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	Transitions *prometheus.CounterVec // by state and source
	Resolutions prometheus.Counter
	Commands    *prometheus.CounterVec // by kind and result
	Relay       prometheus.Gauge
	Daylight    prometheus.Gauge
	ClockSynced prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outlet",
			Name:      "transitions_total",
			Help:      "Relay transitions by resulting state and source.",
		}, []string{"state", "source"}),
		Resolutions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "outlet",
			Name:      "schedule_resolutions_total",
			Help:      "Times the cycle table was rebuilt.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "outlet",
			Name:      "commands_total",
			Help:      "Remote commands by kind and result.",
		}, []string{"kind", "result"}),
		Relay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outlet",
			Name:      "relay_on",
			Help:      "1 while the relay is closed.",
		}),
		Daylight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outlet",
			Name:      "daylight_seconds",
			Help:      "Length of today's daylight at the configured site.",
		}),
		ClockSynced: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "outlet",
			Name:      "clock_synced",
			Help:      "1 once the system clock is synchronized.",
		}),
	}
	reg.MustRegister(
		m.Transitions, m.Resolutions, m.Commands, m.Relay, m.Daylight, m.ClockSynced,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

// SetBool sets g to 1 or 0.
func SetBool(g prometheus.Gauge, v bool) {
	if v {
		g.Set(1)
	} else {
		g.Set(0)
	}
}

package telegraph

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the router's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	routes   *prometheus.CounterVec
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	alerts   prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pcremote",
			Name:      "messages_routed_total",
			Help:      "Inbound messages by routing outcome.",
		}, []string{"route"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pcremote",
			Name:      "actions_total",
			Help:      "Executed actions by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pcremote",
			Name:      "action_duration_seconds",
			Help:      "Time spent executing one action, replies included.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"outcome"}),
		alerts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pcremote",
			Name:      "alerts_sent_total",
			Help:      "Monitoring and task notices pushed to the operator.",
		}),
	}
	for _, c := range []prometheus.Collector{m.routes, m.actions, m.duration, m.alerts} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) routed(route string) {
	if m == nil {
		return
	}
	m.routes.WithLabelValues(route).Inc()
}

func (m *Metrics) action(_ string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := outcomeOf(err)
	m.actions.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) alert() {
	if m == nil {
		return
	}
	m.alerts.Inc()
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

package extensions

import (
	"github.com/prometheus/client_golang/prometheus"

	compose "github.com/pumped-fn/pumped-compose"
)

// MetricsMonitor exports lifecycle and send metrics to Prometheus
type MetricsMonitor struct {
	compose.BaseMonitor

	lifecycle     *prometheus.CounterVec
	live          *prometheus.GaugeVec
	subscriptions *prometheus.GaugeVec
	sends         *prometheus.CounterVec
	sendDuration  *prometheus.HistogramVec
	cleanupErrors prometheus.Counter
}

// NewMetricsMonitor creates a metrics monitor and registers its collectors
// with reg. A nil reg uses prometheus.DefaultRegisterer.
func NewMetricsMonitor(reg prometheus.Registerer) (*MetricsMonitor, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &MetricsMonitor{
		BaseMonitor: compose.NewBaseMonitor("metrics"),
		lifecycle: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compose",
				Subsystem: "lifecycle",
				Name:      "events_total",
				Help:      "Total number of container and component lifecycle events",
			},
			[]string{"event", "mode"},
		),
		live: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "compose",
				Subsystem: "lifecycle",
				Name:      "live_components",
				Help:      "Components created and not yet destroyed",
			},
			[]string{"container", "mode"},
		),
		subscriptions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "compose",
				Subsystem: "lifecycle",
				Name:      "pending_subscriptions",
				Help:      "Subscriptions detached from destroyed components and not yet cancelled",
			},
			[]string{"mode"},
		),
		sends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "compose",
				Subsystem: "emitter",
				Name:      "sends_total",
				Help:      "Total number of emitter sends",
			},
			[]string{"kind"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "compose",
				Subsystem: "emitter",
				Name:      "send_duration_seconds",
				Help:      "Time spent delivering one send to every observer",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
			[]string{"kind"},
		),
		cleanupErrors: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "compose",
				Subsystem: "registry",
				Name:      "cleanup_errors_total",
				Help:      "Total number of failed subscription cleanups",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.lifecycle, m.live, m.subscriptions, m.sends, m.sendDuration, m.cleanupErrors} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *MetricsMonitor) OnLifecycle(ev compose.LifecycleEvent) {
	mode := string(ev.Mode)
	m.lifecycle.WithLabelValues(string(ev.Kind), mode).Inc()

	switch ev.Kind {
	case compose.LifecycleCreated:
		m.live.WithLabelValues(ev.ContainerName, mode).Inc()
	case compose.LifecycleDestroyed:
		m.live.WithLabelValues(ev.ContainerName, mode).Dec()
		m.subscriptions.WithLabelValues(mode).Add(float64(ev.Subscriptions))
	case compose.LifecycleDisposed:
		m.subscriptions.WithLabelValues(mode).Sub(float64(ev.Subscriptions))
	}
}

func (m *MetricsMonitor) OnEmit(ev compose.EmitEvent) {
	if ev.Closed {
		return
	}
	kind := string(ev.Kind)
	m.sends.WithLabelValues(kind).Inc()
	m.sendDuration.WithLabelValues(kind).Observe(ev.Duration.Seconds())
}

// OnCleanupError counts the failure and leaves handling to later monitors
func (m *MetricsMonitor) OnCleanupError(err *compose.CleanupError) bool {
	m.cleanupErrors.Inc()
	return false
}

package task

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metric label values for rejected admissions.
const (
	rejectCapacity   = "capacity"
	rejectNotRunning = "not_running"
	rejectCanceled   = "canceled"
)

// Metrics holds the Prometheus collectors shared by one or more engines.
// A nil *Metrics records nothing.
type Metrics struct {
	enqueued      *prometheus.CounterVec
	outcomes      *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	notifications *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	queueWait     *prometheus.HistogramVec
	queueDepth    prometheus.Gauge
	inFlight      prometheus.Gauge
}

// NewMetrics creates the engine collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		enqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "enqueued_total",
				Help:      "Total number of work items admitted to the queue.",
			},
			[]string{"kind"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "outcomes_total",
				Help:      "Total number of resolved work items by outcome.",
			},
			[]string{"kind", "outcome"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "rejected_total",
				Help:      "Total number of enqueue calls that were not admitted.",
			},
			[]string{"reason"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "notifications_total",
				Help:      "Total number of completion notifications by result.",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "execution_seconds",
				Help:      "Time spent running work items, in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		queueWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "queue_wait_seconds",
				Help:      "Time between enqueue and the start of execution, in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		queueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "queue_depth",
				Help:      "Number of work items waiting in queues.",
			},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "task",
				Name:      "in_flight",
				Help:      "Number of work items currently executing.",
			},
		),
	}

	collectors := []prometheus.Collector{
		m.enqueued, m.outcomes, m.rejected, m.notifications,
		m.duration, m.queueWait, m.queueDepth, m.inFlight,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) itemEnqueued(kind string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(kind).Inc()
	m.queueDepth.Inc()
}

// itemAccepted counts an item resolved at admission without being queued.
func (m *Metrics) itemAccepted(kind string) {
	if m == nil {
		return
	}
	m.enqueued.WithLabelValues(kind).Inc()
}

func (m *Metrics) itemsDequeued(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Sub(float64(n))
}

func (m *Metrics) itemStarted(kind string, waited time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.WithLabelValues(kind).Observe(waited.Seconds())
	m.inFlight.Inc()
}

func (m *Metrics) itemFinished(kind string, o outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	m.outcomes.WithLabelValues(kind, o.String()).Inc()
}

func (m *Metrics) itemResolved(kind, result string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) admissionRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

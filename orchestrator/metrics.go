package orchestrator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 记录生成调用的结果与耗时。nil 的 *Metrics 可以安全调用。
type Metrics struct {
	generations *prometheus.CounterVec
	duration    prometheus.Histogram
	stale       prometheus.Counter
	inFlight    prometheus.Gauge
}

// NewMetrics registers the orchestrator collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "persona_studio",
			Name:      "generations_total",
			Help:      "Settled persona generations by outcome.",
		}, []string{"status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "persona_studio",
			Name:      "generation_duration_seconds",
			Help:      "Latency of a single persona generation call.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
		}),
		stale: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "persona_studio",
			Name:      "stale_updates_total",
			Help:      "Generation results dropped because their batch was superseded.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "persona_studio",
			Name:      "batches_in_flight",
			Help:      "Batches with requests still in flight.",
		}),
	}
	for _, c := range []prometheus.Collector{m.generations, m.duration, m.stale, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeGeneration(err error, d time.Duration) {
	if m == nil {
		return
	}
	status := string(StatusSuccess)
	if err != nil {
		status = string(StatusError)
	}
	m.generations.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
}

func (m *Metrics) staleUpdate() {
	if m == nil {
		return
	}
	m.stale.Inc()
}

func (m *Metrics) batchStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) batchFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

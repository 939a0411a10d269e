// monitor/monitor.go
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	ConnectedObservers prometheus.Gauge
	GamesStarted       prometheus.Counter
	TurnsCompleted     prometheus.Counter
	FragmentsStreamed  prometheus.Counter
	Violations         prometheus.Counter
	TurnErrors         prometheus.Counter
	TurnDuration       prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		ConnectedObservers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_observers",
			Help:      "Number of connected observers",
		}),
		GamesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "games_started_total",
			Help:      "Total number of games started",
		}),
		TurnsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_completed_total",
			Help:      "Total number of non-violating turns recorded",
		}),
		FragmentsStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fragments_streamed_total",
			Help:      "Total number of completion fragments relayed to observers",
		}),
		Violations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of games ended by a taboo-word violation",
		}),
		TurnErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_errors_total",
			Help:      "Total number of turns aborted by a gateway failure",
		}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Wall time of a full turn, stream included",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}

	prometheus.MustRegister(
		m.ConnectedObservers,
		m.GamesStarted,
		m.TurnsCompleted,
		m.FragmentsStreamed,
		m.Violations,
		m.TurnErrors,
		m.TurnDuration,
	)

	return m
}

type Monitor struct {
	metrics   *Metrics
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	return &Monitor{
		metrics:   NewMetrics(namespace),
		startTime: time.Now(),
	}
}

func (m *Monitor) StartServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())

	// 添加expvar指标
	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return time.Since(m.startTime).Seconds()
	}))

	go http.ListenAndServe(addr, nil)
}

func (m *Monitor) IncObservers() {
	m.metrics.ConnectedObservers.Inc()
}

func (m *Monitor) DecObservers() {
	m.metrics.ConnectedObservers.Dec()
}

func (m *Monitor) IncGamesStarted() {
	m.metrics.GamesStarted.Inc()
}

func (m *Monitor) IncTurnsCompleted() {
	m.metrics.TurnsCompleted.Inc()
}

func (m *Monitor) IncFragmentsStreamed() {
	m.metrics.FragmentsStreamed.Inc()
}

func (m *Monitor) IncViolations() {
	m.metrics.Violations.Inc()
}

func (m *Monitor) IncTurnErrors() {
	m.metrics.TurnErrors.Inc()
}

func (m *Monitor) ObserveTurnDuration(duration time.Duration) {
	m.metrics.TurnDuration.Observe(duration.Seconds())
}

package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sink records business events. Services receive it explicitly.
type Sink interface {
	AuthEvent(event, outcome string)
	Transition(entity, from, to string)
	EntryMutation(operation string)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) AuthEvent(string, string)          {}
func (NopSink) Transition(string, string, string) {}
func (NopSink) EntryMutation(string)              {}

// PrometheusSink exports business events as Prometheus counters.
type PrometheusSink struct {
	authEvents     *prometheus.CounterVec
	transitions    *prometheus.CounterVec
	entryMutations *prometheus.CounterVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		authEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foresy",
				Subsystem: "auth",
				Name:      "events_total",
				Help:      "Authentication events by outcome.",
			},
			[]string{"event", "outcome"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foresy",
				Subsystem: "lifecycle",
				Name:      "transitions_total",
				Help:      "Lifecycle status transitions of missions and CRAs.",
			},
			[]string{"entity", "from", "to"},
		),
		entryMutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foresy",
				Subsystem: "cra",
				Name:      "entry_mutations_total",
				Help:      "CRA entry writes by operation.",
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(s.authEvents, s.transitions, s.entryMutations)
	return s
}

func (s *PrometheusSink) AuthEvent(event, outcome string) {
	s.authEvents.WithLabelValues(event, outcome).Inc()
}

func (s *PrometheusSink) Transition(entity, from, to string) {
	s.transitions.WithLabelValues(entity, from, to).Inc()
}

func (s *PrometheusSink) EntryMutation(operation string) {
	s.entryMutations.WithLabelValues(operation).Inc()
}

// HTTPMetrics instruments gin requests.
type HTTPMetrics struct {
	inFlight prometheus.Gauge
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewHTTPMetrics(reg prometheus.Registerer) *HTTPMetrics {
	m := &HTTPMetrics{
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "foresy",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "foresy",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "foresy",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}
	reg.MustRegister(m.inFlight, m.requests, m.duration)
	return m
}

// Middleware records request count, latency and in-flight gauge. Routes are
// labelled by their pattern so path parameters do not explode cardinality.
func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the registry in the Prometheus text format.
func Handler(gatherer prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

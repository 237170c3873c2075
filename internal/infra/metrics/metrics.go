package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	votesCast           *prometheus.CounterVec
	rateLimitDecisions  *prometheus.CounterVec
	moderationActions   *prometheus.CounterVec
	reputationRecompute *prometheus.CounterVec
	reputationDropped   prometheus.Counter
	httpDuration        *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		votesCast: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealboard_votes_cast_total",
				Help: "Votes processed by the ledger, by applied value",
			},
			[]string{"applied"},
		),
		rateLimitDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealboard_rate_limit_decisions_total",
				Help: "Rate limit decisions by action class and result",
			},
			[]string{"class", "result"},
		),
		moderationActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealboard_moderation_actions_total",
				Help: "Offer moderation transitions by action",
			},
			[]string{"action"},
		),
		reputationRecompute: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dealboard_reputation_recompute_total",
				Help: "Background reputation recomputations by result",
			},
			[]string{"result"},
		),
		reputationDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dealboard_reputation_tasks_dropped_total",
				Help: "Reputation recompute requests dropped because the queue was full",
			},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dealboard_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.votesCast,
		m.rateLimitDecisions,
		m.moderationActions,
		m.reputationRecompute,
		m.reputationDropped,
		m.httpDuration,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) VoteCast(applied int) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(strconv.Itoa(applied)).Inc()
}

func (m *Metrics) RateLimitDecision(class, result string) {
	if m == nil {
		return
	}
	m.rateLimitDecisions.WithLabelValues(class, result).Inc()
}

func (m *Metrics) ModerationAction(action string) {
	if m == nil {
		return
	}
	m.moderationActions.WithLabelValues(action).Inc()
}

func (m *Metrics) ReputationRecompute(result string) {
	if m == nil {
		return
	}
	m.reputationRecompute.WithLabelValues(result).Inc()
}

func (m *Metrics) ReputationDropped() {
	if m == nil {
		return
	}
	m.reputationDropped.Inc()
}

func (m *Metrics) ObserveHTTP(method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

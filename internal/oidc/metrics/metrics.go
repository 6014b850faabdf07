package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BridgeDuration       prometheus.Histogram
	BridgedResponses     *prometheus.CounterVec
	InteractionsStarted  *prometheus.CounterVec
	InteractionsResolved *prometheus.CounterVec
	TokensIssued         prometheus.Counter
	TokenValidations     *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		BridgeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "oidcgate_bridge_request_duration_seconds",
			Help:    "Time spent bridging a request through the provider engine",
			Buckets: prometheus.DefBuckets,
		}),
		BridgedResponses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcgate_bridge_responses_total",
			Help: "Total bridged provider responses by HTTP status code",
		}, []string{"status"}),
		InteractionsStarted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcgate_interactions_started_total",
			Help: "Total interaction sessions started by initial prompt",
		}, []string{"prompt"}),
		InteractionsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcgate_interactions_resolved_total",
			Help: "Total interaction sessions resolved by outcome",
		}, []string{"outcome"}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "oidcgate_tokens_issued_total",
			Help: "Total access tokens minted by the token endpoint",
		}),
		TokenValidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "oidcgate_token_validations_total",
			Help: "Total access token validations by result",
		}, []string{"result"}),
	}
}

// All increment helpers tolerate a nil receiver so tests can run without
// registering collectors against the default registry.

func (m *Metrics) ObserveBridge(status int, started time.Time) {
	if m == nil {
		return
	}
	m.BridgeDuration.Observe(time.Since(started).Seconds())
	m.BridgedResponses.WithLabelValues(strconv.Itoa(status)).Inc()
}

func (m *Metrics) IncrementInteractionsStarted(prompt string) {
	if m == nil {
		return
	}
	m.InteractionsStarted.WithLabelValues(prompt).Inc()
}

func (m *Metrics) IncrementInteractionsResolved(outcome string) {
	if m == nil {
		return
	}
	m.InteractionsResolved.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementTokensIssued() {
	if m == nil {
		return
	}
	m.TokensIssued.Inc()
}

func (m *Metrics) IncrementTokenValidations(result string) {
	if m == nil {
		return
	}
	m.TokenValidations.WithLabelValues(result).Inc()
}

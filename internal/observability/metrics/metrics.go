package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConversationMetrics exposes counters/histograms for chat turns, booking
// transitions and responder calls.
type ConversationMetrics struct {
	messagesTotal    *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
	outcomesTotal    *prometheus.CounterVec
	responderTotal   *prometheus.CounterVec
	responderLatency *prometheus.HistogramVec
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "conversation",
			Name:      "messages_total",
			Help:      "Inbound chat messages by routing decision",
		}, []string{"route"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "booking",
			Name:      "transitions_total",
			Help:      "Booking flow step transitions",
		}, []string{"from", "to"}),
		outcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "booking",
			Name:      "outcomes_total",
			Help:      "Terminal booking outcomes",
		}, []string{"outcome"}),
		responderTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetchat",
			Subsystem: "responder",
			Name:      "requests_total",
			Help:      "Q&A model calls by status",
		}, []string{"status"}),
		responderLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "vetchat",
			Subsystem: "responder",
			Name:      "latency_seconds",
			Help:      "Latency of Q&A model calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.transitionsTotal, m.outcomesTotal, m.responderTotal, m.responderLatency)
	return m
}

func (m *ConversationMetrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(route).Inc()
}

func (m *ConversationMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *ConversationMetrics) ObserveOutcome(outcome string) {
	if m == nil {
		return
	}
	m.outcomesTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveResponder(status string, seconds float64) {
	if m == nil {
		return
	}
	m.responderTotal.WithLabelValues(status).Inc()
	m.responderLatency.WithLabelValues(status).Observe(seconds)
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// ReconcileMetrics counts matcher outcomes against the ledger sources.
type ReconcileMetrics struct {
	confirmations *prometheus.CounterVec
	sourceErrors  *prometheus.CounterVec
	fallbacks     prometheus.Counter
	inconclusive  prometheus.Counter
	expirations   prometheus.Counter
}

// NewReconcileMetrics registers the reconciliation metrics on the provided registerer.
func NewReconcileMetrics(reg prometheus.Registerer) *ReconcileMetrics {
	if reg == nil {
		return &ReconcileMetrics{}
	}
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_confirmations",
		Help: "Intents confirmed, labeled by the source that found the match.",
	}, []string{"source"})
	sourceErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconcile_source_errors",
		Help: "Candidate fetches that failed, labeled by source.",
	}, []string{"source"})
	fallbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_fallbacks",
		Help: "Checks that fell back past the primary source.",
	})
	inconclusive := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_inconclusive",
		Help: "Checks where every source failed and the intent stayed pending.",
	})
	expirations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_expirations",
		Help: "Intents transitioned to expired.",
	})
	reg.MustRegister(confirmations, sourceErrors, fallbacks, inconclusive, expirations)
	return &ReconcileMetrics{
		confirmations: confirmations,
		sourceErrors:  sourceErrors,
		fallbacks:     fallbacks,
		inconclusive:  inconclusive,
		expirations:   expirations,
	}
}

// IncConfirmation increments the confirmation counter for the named source.
func (r *ReconcileMetrics) IncConfirmation(source string) {
	if r == nil || r.confirmations == nil {
		return
	}
	r.confirmations.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncSourceError increments the fetch-failure counter for the named source.
func (r *ReconcileMetrics) IncSourceError(source string) {
	if r == nil || r.sourceErrors == nil {
		return
	}
	r.sourceErrors.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncFallback increments the fallback counter.
func (r *ReconcileMetrics) IncFallback() {
	if r == nil || r.fallbacks == nil {
		return
	}
	r.fallbacks.Inc()
}

// IncInconclusive increments the inconclusive-check counter.
func (r *ReconcileMetrics) IncInconclusive() {
	if r == nil || r.inconclusive == nil {
		return
	}
	r.inconclusive.Inc()
}

// IncExpiration increments the expiration counter.
func (r *ReconcileMetrics) IncExpiration() {
	if r == nil || r.expirations == nil {
		return
	}
	r.expirations.Inc()
}

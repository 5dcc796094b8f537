// Package metrics collects Prometheus counters/gauges for the
// pipeline, grounded on the teacher's internal/metrics/collector.go
// pattern of a single struct of pre-registered vectors handed to every
// component that needs to record an observation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector bundles every metric the pipeline emits.
type Collector struct {
	CandidatesGenerated prometheus.Counter
	CandidatesBlocked   prometheus.Counter
	PairsValidated      prometheus.Counter
	PairsRejected       *prometheus.CounterVec // by rejecting stage (rules, llm)

	EdgeSignalsEmitted prometheus.Counter
	LeadLagStable      prometheus.Gauge

	ExecutionOutcomes *prometheus.CounterVec // by outcome: settled/failed
	RiskRejections    *prometheus.CounterVec // by reason

	LLMCostUSD    prometheus.Counter
	LLMCallTotal  *prometheus.CounterVec // by provider/outcome

	DroppedMessages *prometheus.CounterVec // by venue
}

// NewCollector builds and registers all metrics against reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		CandidatesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "candidates_generated_total",
			Help: "Total candidate pairs generated by blocking.",
		}),
		CandidatesBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "candidates_blocked_total",
			Help: "Total candidate pairs rejected by blocking keys.",
		}),
		PairsValidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "pairs_validated_total",
			Help: "Total pairs that passed hard rules and LLM scoring.",
		}),
		PairsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "pairs_rejected_total",
			Help: "Total pairs rejected, labeled by the stage that rejected them.",
		}, []string{"reason"}),
		EdgeSignalsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "signal", Name: "edge_signals_emitted_total",
			Help: "Total EdgeSignals emitted above threshold.",
		}),
		LeadLagStable: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arbengine", Subsystem: "signal", Name: "leadlag_stable_pairs",
			Help: "Count of pairs currently reporting a stable leader.",
		}),
		ExecutionOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "execution", Name: "outcomes_total",
			Help: "Execution attempt outcomes.",
		}, []string{"outcome"}),
		RiskRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "risk", Name: "rejections_total",
			Help: "Risk manager rejections, labeled by reason.",
		}, []string{"reason"}),
		LLMCostUSD: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "llm_cost_usd_total",
			Help: "Cumulative LLM validator spend.",
		}),
		LLMCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "matching", Name: "llm_calls_total",
			Help: "LLM validator calls, labeled by provider and outcome.",
		}, []string{"provider", "outcome"}),
		DroppedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arbengine", Subsystem: "ingest", Name: "dropped_messages_total",
			Help: "Malformed ingest messages dropped, labeled by venue.",
		}, []string{"venue"}),
	}

	reg.MustRegister(
		c.CandidatesGenerated, c.CandidatesBlocked, c.PairsValidated, c.PairsRejected,
		c.EdgeSignalsEmitted, c.LeadLagStable, c.ExecutionOutcomes, c.RiskRejections,
		c.LLMCostUSD, c.LLMCallTotal, c.DroppedMessages,
	)
	return c
}

package swarm

import "math"

const (
	DefaultConfidenceThreshold = 0.82
	DefaultMaxIterations       = 4

	// minEvidence is the smallest evidence bundle considered complete.
	minEvidence = 3
)

// Audit recommendations, in the order they are checked.
const (
	RecCollectTelemetry = "Collect more telemetry before autonomous execution"
	RecExpandEvidence   = "Expand evidence bundle from additional data sources"
	RecEscalateHuman    = "Escalate to human incident commander with timeline summary"
	RecGatesPassed      = "Quality gates passed for current iteration"
)

// AuditDecision is the outcome of an AuditGate pass.
type AuditDecision struct {
	Sufficient      bool     `json:"sufficient"`
	Confidence      float64  `json:"confidence"`
	Recommendations []string `json:"recommendations"`
}

// AuditGate judges whether a verdict is trustworthy enough to act on
// autonomously. It is a single-pass gate; MaxIterations bounds a future
// re-audit loop and is not consulted by Audit.
type AuditGate struct {
	Threshold     float64
	MaxIterations int
}

// NewAuditGate creates a gate. Non-positive arguments select the defaults.
func NewAuditGate(threshold float64, maxIterations int) *AuditGate {
	if threshold <= 0 {
		threshold = DefaultConfidenceThreshold
	}
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &AuditGate{Threshold: threshold, MaxIterations: maxIterations}
}

// Audit decides sufficiency and builds the recommendation list, which is never empty.
func (g *AuditGate) Audit(confidence float64, status Status, evidenceCount int) AuditDecision {
	var recs []string

	if confidence < g.Threshold {
		recs = append(recs, RecCollectTelemetry)
	}
	if evidenceCount < minEvidence {
		recs = append(recs, RecExpandEvidence)
	}
	if status == StatusNeedsHuman {
		recs = append(recs, RecEscalateHuman)
	}
	if len(recs) == 0 {
		recs = append(recs, RecGatesPassed)
	}

	return AuditDecision{
		Sufficient:      confidence >= g.Threshold && status != StatusNeedsHuman,
		Confidence:      round2(confidence),
		Recommendations: recs,
	}
}

// round2 rounds to two decimals, ties to even.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

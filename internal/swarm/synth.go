package swarm

import "sort"

// Verdict texts.
const (
	HypothesisDefault  = "Resource pressure likely triggered by traffic spike and recent changes"
	HypothesisSecurity = "Potential security-driven incident impacting application stability"
	HypothesisNoSignal = "No evidence available"

	ActionDefault     = "Rollback latest deployment, increase replicas by 30%, and enable temporary rate limiting while monitoring error budget burn"
	ActionSecurity    = "Enable WAF strict mode, block suspicious IP ranges, rotate high-risk credentials"
	ActionAutoResolve = "Applied verified remediation via canary and promoted change to production"
	ActionCommander   = "Escalate to incident commander with full evidence bundle and rollback recommendation"
	ActionNoSignal    = "Escalate to on-call engineer and gather telemetry"

	RecIncreaseCoverage = "Increase connector coverage before autonomous triage"
)

const (
	// securityOverrideConfidence is the minimum top-signal confidence for the security rule.
	securityOverrideConfidence = 0.85
	// autoResolveConfidence is the mean confidence at which low/medium incidents auto-resolve.
	autoResolveConfidence = 0.8
	// commanderConfidence is the mean confidence below which critical incidents escalate.
	commanderConfidence = 0.75

	// noSignalMinutes is the ETA reported when no agent produced a signal.
	noSignalMinutes = 45
)

// minutesToMitigate maps a verdict status to its ETA.
var minutesToMitigate = map[Status]int{
	StatusResolved:   8,
	StatusMitigated:  15,
	StatusNeedsHuman: 30,
}

// synthesize reduces the collected signals to one verdict and its audit
// decision. signals must be in agent registration order; it is sorted in place.
func synthesize(incident *IncidentRequest, signals []Signal, gate *AuditGate) (*InvestigationResult, AuditDecision) {
	res := &InvestigationResult{
		IncidentID:  incident.IncidentID,
		Service:     incident.Service,
		Environment: incident.Environment,
	}

	if len(signals) == 0 {
		res.Status = StatusNeedsHuman
		res.Hypothesis = HypothesisNoSignal
		res.SuggestedAction = ActionNoSignal
		res.Confidence = 0
		res.MinutesToMitigate = noSignalMinutes
		res.AuditRecommendations = []string{RecIncreaseCoverage}
		res.Signals = []Signal{}
		return res, AuditDecision{Recommendations: res.AuditRecommendations}
	}

	// ties keep registration order
	sort.SliceStable(signals, func(i, j int) bool {
		return signals[i].Confidence > signals[j].Confidence
	})
	top := signals[0]

	var sum float64
	for _, s := range signals {
		sum += s.Confidence
	}
	avg := round2(sum / float64(len(signals)))

	status := StatusMitigated
	hypothesis := HypothesisDefault
	action := ActionDefault

	// Rules apply in order and later rules overwrite earlier ones.
	if top.Domain == DomainSecurity && top.Confidence >= securityOverrideConfidence {
		hypothesis = HypothesisSecurity
		action = ActionSecurity
		if incident.Severity == SeverityHigh || incident.Severity == SeverityCritical {
			status = StatusNeedsHuman
		} else {
			status = StatusMitigated
		}
	}
	if (incident.Severity == SeverityLow || incident.Severity == SeverityMedium) && avg >= autoResolveConfidence {
		status = StatusResolved
		action = ActionAutoResolve
	}
	if incident.Severity == SeverityCritical && avg < commanderConfidence {
		status = StatusNeedsHuman
		action = ActionCommander
	}

	res.Status = status
	res.Hypothesis = hypothesis
	res.SuggestedAction = action
	res.Confidence = avg
	res.MinutesToMitigate = minutesToMitigate[status]
	res.Signals = signals

	audit := gate.Audit(avg, status, res.EvidenceCount())
	res.AuditRecommendations = audit.Recommendations

	return res, audit
}

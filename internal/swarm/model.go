package swarm

// Domain is the diagnostic area an Agent covers.
type Domain string

const (
	DomainMetrics     Domain = "metrics"
	DomainDeployments Domain = "deployments"
	DomainKubernetes  Domain = "kubernetes"
	DomainCost        Domain = "cost"
	DomainSecurity    Domain = "security"
)

// Domains lists every known domain in default registration order.
var Domains = []Domain{DomainMetrics, DomainDeployments, DomainKubernetes, DomainCost, DomainSecurity}

// Valid reports whether d is one of the known domains.
func (d Domain) Valid() bool {
	for _, known := range Domains {
		if d == known {
			return true
		}
	}
	return false
}

// Severity is the caller-assigned impact of an incident.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Environment is where the affected service runs.
type Environment string

const (
	EnvDev     Environment = "dev"
	EnvStaging Environment = "staging"
	EnvProd    Environment = "prod"
)

// Valid reports whether e is a known environment.
func (e Environment) Valid() bool {
	switch e {
	case EnvDev, EnvStaging, EnvProd:
		return true
	}
	return false
}

// Status is the verdict of a triage run.
type Status string

const (
	// StatusResolved means a verified remediation was applied
	StatusResolved Status = "resolved"

	// StatusMitigated means impact is contained but follow-up is expected
	StatusMitigated Status = "mitigated"

	// StatusNeedsHuman means the swarm will not act without an engineer
	StatusNeedsHuman Status = "needs_human"
)

// Signal is one agent's finding about an incident. Confidence is within [0, 1].
type Signal struct {
	Domain     Domain   `json:"domain"`
	Finding    string   `json:"finding"`
	Confidence float64  `json:"confidence"`
	Evidence   []string `json:"evidence"`
}

// IncidentRequest describes the incident to triage. It is validated at the
// API boundary; the swarm assumes it is well formed.
type IncidentRequest struct {
	IncidentID  string      `json:"incident_id" validate:"required,min=3"`
	Service     string      `json:"service"`
	Symptom     string      `json:"symptom"`
	Severity    Severity    `json:"severity" validate:"oneof=low medium high critical"`
	Environment Environment `json:"environment" validate:"oneof=dev staging prod"`
}

// ApplyDefaults fills unset severity and environment.
func (r *IncidentRequest) ApplyDefaults() {
	if r.Severity == "" {
		r.Severity = SeverityMedium
	}
	if r.Environment == "" {
		r.Environment = EnvProd
	}
}

// InvestigationResult is the verdict returned by a triage run.
type InvestigationResult struct {
	IncidentID           string      `json:"incident_id"`
	Service              string      `json:"service"`
	Environment          Environment `json:"environment"`
	Status               Status      `json:"status"`
	Hypothesis           string      `json:"hypothesis"`
	SuggestedAction      string      `json:"suggested_action"`
	Confidence           float64     `json:"confidence"`
	MinutesToMitigate    int         `json:"estimated_minutes_to_mitigate"`
	AuditRecommendations []string    `json:"audit_recommendations"`
	Signals              []Signal    `json:"signals"`
}

// EvidenceCount returns the total number of evidence references across all signals.
func (r *InvestigationResult) EvidenceCount() int {
	n := 0
	for i := range r.Signals {
		n += len(r.Signals[i].Evidence)
	}
	return n
}

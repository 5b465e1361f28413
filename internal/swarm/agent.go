package swarm

import (
	"context"
	"fmt"
	"strings"
)

// Agent investigates one diagnostic domain of an incident and reports a Signal.
type Agent interface {
	Domain() Domain
	Investigate(ctx context.Context, incident *IncidentRequest) (Signal, error)
}

// Investigator is the pure per-domain rule set behind a built-in Agent.
type Investigator func(incident *IncidentRequest) Signal

// investigators maps each domain to its built-in rule set.
var investigators = map[Domain]Investigator{
	DomainMetrics:     investigateMetrics,
	DomainDeployments: investigateDeployments,
	DomainKubernetes:  investigateKubernetes,
	DomainCost:        investigateCost,
	DomainSecurity:    investigateSecurity,
}

// domainAgent adapts an Investigator to the Agent interface.
type domainAgent struct {
	domain Domain
	fn     Investigator
}

func (a domainAgent) Domain() Domain { return a.domain }

func (a domainAgent) Investigate(_ context.Context, incident *IncidentRequest) (Signal, error) {
	return a.fn(incident), nil
}

// NewAgent returns the built-in agent for domain.
func NewAgent(domain Domain) (Agent, error) {
	fn, ok := investigators[domain]
	if !ok {
		return nil, fmt.Errorf("unknown agent domain %q", domain)
	}
	return domainAgent{domain: domain, fn: fn}, nil
}

// NewAgents returns built-in agents for domains, in the given order.
func NewAgents(domains ...Domain) ([]Agent, error) {
	agents := make([]Agent, 0, len(domains))
	for _, d := range domains {
		a, err := NewAgent(d)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// DefaultAgents returns the full swarm: one agent per known domain.
func DefaultAgents() []Agent {
	agents, err := NewAgents(Domains...)
	if err != nil {
		// every entry of Domains has an investigator
		panic(err)
	}
	return agents
}

func containsAny(symptom string, tokens ...string) bool {
	s := strings.ToLower(symptom)
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func investigateMetrics(incident *IncidentRequest) Signal {
	sig := Signal{
		Domain:     DomainMetrics,
		Finding:    fmt.Sprintf("Error/traffic anomalies detected for %s", incident.Service),
		Confidence: 0.62,
		Evidence: []string{
			"prometheus:histogram_quantile(0.95, request_duration_seconds)",
			"alertmanager:firing=SLOLatencyBurnRate",
		},
	}
	if containsAny(incident.Symptom, "latency", "timeout", "slow") {
		sig.Finding = fmt.Sprintf("P95 latency regression detected for %s", incident.Service)
		sig.Confidence = 0.90
	}
	return sig
}

func investigateDeployments(incident *IncidentRequest) Signal {
	confidence := 0.68
	if containsAny(incident.Symptom, "deploy", "release", "rollback") {
		confidence = 0.86
	}
	return Signal{
		Domain:     DomainDeployments,
		Finding:    "Recent rollout/change-window overlap with incident start",
		Confidence: confidence,
		Evidence: []string{
			"github:main@last_commit_within_20m",
			"argo-rollouts:replicaset_transition",
		},
	}
}

func investigateKubernetes(incident *IncidentRequest) Signal {
	confidence := 0.63
	if incident.Environment == EnvProd {
		confidence = 0.88
	}
	return Signal{
		Domain:     DomainKubernetes,
		Finding:    "Pod restart spikes and CPU throttling on serving tier",
		Confidence: confidence,
		Evidence: []string{
			"kubectl:get pods --field-selector=status.phase!=Running",
			"kube-state-metrics:container_cpu_cfs_throttled_seconds_total",
		},
	}
}

func investigateCost(_ *IncidentRequest) Signal {
	return Signal{
		Domain:     DomainCost,
		Finding:    "No immediate FinOps anomaly linked to incident blast radius",
		Confidence: 0.44,
		Evidence: []string{
			"billing:hourly_spend_within_expected_band",
			"billing:service_spend_delta_24h",
		},
	}
}

func investigateSecurity(incident *IncidentRequest) Signal {
	sig := Signal{
		Domain:     DomainSecurity,
		Finding:    "No active exploit signature in runtime telemetry",
		Confidence: 0.58,
		Evidence: []string{
			"waf:anomaly_score",
			"falco:runtime_ruleset",
		},
	}
	if containsAny(incident.Symptom, "attack", "breach", "exploit", "waf") {
		sig.Finding = "Suspicious request signatures aligned with OWASP patterns"
		sig.Confidence = 0.91
	}
	return sig
}

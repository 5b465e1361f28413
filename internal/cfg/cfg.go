package cfg

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/hiveops/internal/swarm"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	AgentTimeout          time.Duration
	ConfidenceThreshold   float64
	MaxAuditIterations    int
	Agents                string
	APIToken              string
	SlackWebhookURL       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.DurationVar(&c.AgentTimeout, "agent-timeout", swarm.DefaultAgentTimeout, "per-agent investigation deadline, 0 disables (0..60s)")
	fs.Float64Var(&c.ConfidenceThreshold, "confidence-threshold", swarm.DefaultConfidenceThreshold, "audit gate confidence threshold for autonomous action (0..1]")
	fs.IntVar(&c.MaxAuditIterations, "max-audit-iterations", swarm.DefaultMaxIterations, "upper bound for audit re-evaluation passes (1..100)")
	fs.StringVar(&c.Agents, "agents", "", "comma-separated agent domains to dispatch (empty = all)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api/v1 (empty = no auth)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for needs_human escalations")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.AgentTimeout < 0 || c.AgentTimeout > time.Minute {
		errs = append(errs, fmt.Errorf("invalid AGENT_TIMEOUT %s (must be 0..60s)", c.AgentTimeout))
	}

	// NaN fails both comparisons
	if !(c.ConfidenceThreshold > 0 && c.ConfidenceThreshold <= 1) {
		errs = append(errs, fmt.Errorf("invalid CONFIDENCE_THRESHOLD %v (must be in (0, 1])", c.ConfidenceThreshold))
	}

	if c.MaxAuditIterations <= 0 || c.MaxAuditIterations > 100 {
		errs = append(errs, fmt.Errorf("invalid MAX_AUDIT_ITERATIONS %d (must be 1..100)", c.MaxAuditIterations))
	}

	if _, err := c.Domains(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Domains parses Agents into the ordered list of domains to dispatch.
// An empty value selects every known domain.
func (c *Config) Domains() ([]swarm.Domain, error) {
	if strings.TrimSpace(c.Agents) == "" {
		return append([]swarm.Domain(nil), swarm.Domains...), nil
	}

	var out []swarm.Domain
	seen := make(map[swarm.Domain]bool)
	for _, part := range strings.Split(c.Agents, ",") {
		d := swarm.Domain(strings.ToLower(strings.TrimSpace(part)))
		if d == "" {
			continue
		}
		if !d.Valid() {
			return nil, fmt.Errorf("invalid AGENTS entry %q (known: %s)", d, joinDomains(swarm.Domains))
		}
		if seen[d] {
			return nil, fmt.Errorf("duplicate AGENTS entry %q", d)
		}
		seen[d] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, errors.New("AGENTS lists no domains")
	}
	return out, nil
}

func joinDomains(ds []swarm.Domain) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = string(d)
	}
	return strings.Join(parts, ",")
}

package swarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/linnemanlabs/go-core/log"
)

var tracer = otel.Tracer("github.com/linnemanlabs/hiveops/internal/swarm")

// DefaultAgentTimeout bounds a single agent invocation.
const DefaultAgentTimeout = 5 * time.Second

// Reasons an agent's signal is left out of synthesis.
const (
	ReasonError   = "error"
	ReasonTimeout = "timeout"
	ReasonPanic   = "panic"
	ReasonInvalid = "invalid"
	// ReasonCanceled marks agents cut off because the caller went away.
	// It is not counted as an agent failure.
	ReasonCanceled = "canceled"
)

// ErrInvalidSignal is returned for signals that break the Signal invariants.
var ErrInvalidSignal = errors.New("invalid signal")

// AgentFailure records an agent whose signal was omitted.
type AgentFailure struct {
	Domain Domain `json:"domain"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// Hooks receives callbacks for instrumentation. All fields are optional.
type Hooks struct {
	OnAgent    func(domain Domain, duration float64, reason string)
	OnComplete func(e *CompleteEvent)
}

// CompleteEvent summarizes a finished triage run.
type CompleteEvent struct {
	Status     Status
	Confidence float64
	Sufficient bool
	Signals    int
	Omitted    int
	Duration   float64
}

// RunResult is the full outcome of Orchestrator.Run.
type RunResult struct {
	Result   *InvestigationResult
	Audit    AuditDecision
	Failures []AgentFailure
	Duration float64
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithAgentTimeout sets the per-agent deadline. Zero disables it.
func WithAgentTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.agentTimeout = d }
}

// WithHooks installs instrumentation callbacks.
func WithHooks(h Hooks) Option {
	return func(o *Orchestrator) { o.hooks = h }
}

// Orchestrator dispatches the swarm against an incident and synthesizes a verdict.
type Orchestrator struct {
	agents       []Agent
	gate         *AuditGate
	logger       log.Logger
	hooks        Hooks
	agentTimeout time.Duration
}

// New creates an Orchestrator over agents. A nil gate selects the default
// thresholds and a nil logger discards output.
func New(agents []Agent, gate *AuditGate, logger log.Logger, opts ...Option) *Orchestrator {
	if gate == nil {
		gate = NewAuditGate(0, 0)
	}
	if logger == nil {
		logger = log.Nop()
	}
	o := &Orchestrator{
		agents:       append([]Agent(nil), agents...),
		gate:         gate,
		logger:       logger,
		agentTimeout: DefaultAgentTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Domains returns the domains of the registered agents in registration order.
func (o *Orchestrator) Domains() []Domain {
	out := make([]Domain, len(o.agents))
	for i, a := range o.agents {
		out[i] = a.Domain()
	}
	return out
}

// Gate returns the audit gate used for verdicts.
func (o *Orchestrator) Gate() *AuditGate { return o.gate }

// Triage runs the swarm against incident and returns its verdict.
// It fails only when ctx is cancelled or expires before the agents report.
func (o *Orchestrator) Triage(ctx context.Context, incident *IncidentRequest) (*InvestigationResult, error) {
	rr, err := o.Run(ctx, "", incident)
	if err != nil {
		return nil, err
	}
	return rr.Result, nil
}

// Run is Triage with the audit decision and omitted agents attached.
// triageID only labels logs and spans. No verdict is synthesized once ctx
// is done, since the missing signals would not be real agent failures.
func (o *Orchestrator) Run(ctx context.Context, triageID string, incident *IncidentRequest) (*RunResult, error) {
	start := time.Now()

	ctx, span := tracer.Start(ctx, "swarm.triage", trace.WithAttributes(
		attribute.String("hiveops.triage.id", triageID),
		attribute.String("hiveops.incident.id", incident.IncidentID),
		attribute.String("hiveops.incident.severity", string(incident.Severity)),
		attribute.String("hiveops.incident.environment", string(incident.Environment)),
		attribute.Int("hiveops.swarm.agents", len(o.agents)),
	))
	defer span.End()

	L := o.logger.With("triage_id", triageID, "incident_id", incident.IncidentID)

	signals, failures := o.dispatch(ctx, incident)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "triage aborted")
		L.Warn(ctx, "triage aborted before synthesis", "error", err, "signals", len(signals))
		return nil, fmt.Errorf("triage aborted: %w", err)
	}
	for _, f := range failures {
		L.Warn(ctx, "agent omitted from synthesis", "domain", f.Domain, "reason", f.Reason, "error", f.Err)
	}

	res, audit := synthesize(incident, signals, o.gate)

	rr := &RunResult{
		Result:   res,
		Audit:    audit,
		Failures: failures,
		Duration: time.Since(start).Seconds(),
	}

	span.SetAttributes(
		attribute.String("hiveops.verdict.status", string(res.Status)),
		attribute.Float64("hiveops.verdict.confidence", res.Confidence),
		attribute.Bool("hiveops.audit.sufficient", audit.Sufficient),
		attribute.Int("hiveops.swarm.signals", len(res.Signals)),
		attribute.Int("hiveops.swarm.omitted", len(failures)),
	)

	if o.hooks.OnComplete != nil {
		o.hooks.OnComplete(&CompleteEvent{
			Status:     res.Status,
			Confidence: res.Confidence,
			Sufficient: audit.Sufficient,
			Signals:    len(res.Signals),
			Omitted:    len(failures),
			Duration:   rr.Duration,
		})
	}

	L.Info(ctx, "swarm verdict",
		"status", res.Status,
		"confidence", res.Confidence,
		"sufficient", audit.Sufficient,
		"signals", len(res.Signals),
		"omitted", len(failures),
		"duration", rr.Duration,
	)

	return rr, nil
}

// dispatch invokes every agent concurrently and waits for all of them.
// Signals come back in registration order with failed agents removed.
func (o *Orchestrator) dispatch(ctx context.Context, incident *IncidentRequest) ([]Signal, []AgentFailure) {
	type slot struct {
		sig    Signal
		reason string
		err    error
	}
	slots := make([]slot, len(o.agents))

	var g errgroup.Group
	for i, a := range o.agents {
		g.Go(func() error {
			sig, reason, err := o.investigate(ctx, a, incident)
			slots[i] = slot{sig: sig, reason: reason, err: err}
			return nil
		})
	}
	_ = g.Wait() // failures are carried in slots

	signals := make([]Signal, 0, len(slots))
	var failures []AgentFailure
	for i, s := range slots {
		if s.err != nil {
			failures = append(failures, AgentFailure{Domain: o.agents[i].Domain(), Reason: s.reason, Err: s.err})
			continue
		}
		signals = append(signals, s.sig)
	}
	return signals, failures
}

type agentOutcome struct {
	sig Signal
	err error
}

// investigate runs one agent under its own deadline. A non-empty reason
// accompanies every error.
func (o *Orchestrator) investigate(ctx context.Context, a Agent, incident *IncidentRequest) (sig Signal, reason string, err error) {
	start := time.Now()
	domain := a.Domain()
	parent := ctx

	ctx, span := tracer.Start(ctx, "agent.investigate", trace.WithAttributes(
		attribute.String("hiveops.agent.domain", string(domain)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("hiveops.agent.omitted_reason", reason))
		} else {
			span.SetAttributes(attribute.Float64("hiveops.signal.confidence", sig.Confidence))
		}
		span.End()
		if o.hooks.OnAgent != nil && reason != ReasonCanceled {
			o.hooks.OnAgent(domain, time.Since(start).Seconds(), reason)
		}
	}()

	if o.agentTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.agentTimeout)
		defer cancel()
	}

	done := make(chan agentOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- agentOutcome{err: &panicError{msg: fmt.Sprintf("agent %s panicked: %v", domain, r)}}
			}
		}()
		s, err := a.Investigate(ctx, incident)
		done <- agentOutcome{sig: s, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			if parent.Err() != nil {
				return Signal{}, ReasonCanceled, out.err
			}
			if errors.Is(out.err, context.DeadlineExceeded) {
				return Signal{}, ReasonTimeout, out.err
			}
			if isPanic(out.err) {
				return Signal{}, ReasonPanic, out.err
			}
			return Signal{}, ReasonError, out.err
		}
		if err := checkSignal(domain, out.sig); err != nil {
			return Signal{}, ReasonInvalid, err
		}
		if out.sig.Evidence == nil {
			out.sig.Evidence = []string{}
		}
		return out.sig, "", nil
	case <-ctx.Done():
		// only the per-agent deadline counts as a timeout
		if parent.Err() != nil {
			return Signal{}, ReasonCanceled, fmt.Errorf("agent %s: %w", domain, parent.Err())
		}
		return Signal{}, ReasonTimeout, fmt.Errorf("agent %s: %w", domain, ctx.Err())
	}
}

// panicError marks a recovered agent panic.
type panicError struct{ msg string }

func (e *panicError) Error() string { return e.msg }

func isPanic(err error) bool {
	var pe *panicError
	return errors.As(err, &pe)
}

func checkSignal(domain Domain, s Signal) error {
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("%w: %s confidence %v out of [0,1]", ErrInvalidSignal, domain, s.Confidence)
	}
	if s.Domain != domain {
		return fmt.Errorf("%w: agent %s reported domain %q", ErrInvalidSignal, domain, s.Domain)
	}
	return nil
}

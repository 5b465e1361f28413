package swarm

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/oklog/ulid/v2"
)

// Notifier delivers escalations for verdicts that need a human.
type Notifier interface {
	Notify(ctx context.Context, e *Escalation) error
}

// Escalation is what a Notifier receives for a needs_human verdict.
type Escalation struct {
	TriageID string
	Severity Severity
	Symptom  string
	Result   *InvestigationResult
	Audit    AuditDecision
	Omitted  []AgentFailure
}

// Outcome is the result of a Service.Triage call.
type Outcome struct {
	TriageID  string
	Result    *InvestigationResult
	Audit     AuditDecision
	Omitted   []AgentFailure
	Escalated bool
}

// Service is the business boundary for triage: it labels each run, records
// metrics and hands needs_human verdicts to the Notifier.
type Service struct {
	orch     *Orchestrator
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier

	wg sync.WaitGroup
}

// NewService creates a triage service. metrics and notifier may be nil.
func NewService(orch *Orchestrator, logger log.Logger, metrics *Metrics, notifier Notifier) *Service {
	if orch == nil {
		panic(xerrors.New("orchestrator is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		orch:     orch,
		logger:   logger,
		metrics:  metrics,
		notifier: notifier,
	}
}

// Domains returns the domains of the swarm behind this service.
func (s *Service) Domains() []Domain { return s.orch.Domains() }

// Gate returns the audit gate behind this service.
func (s *Service) Gate() *AuditGate { return s.orch.Gate() }

// Triage runs the swarm against req. req must already be validated.
func (s *Service) Triage(ctx context.Context, req *IncidentRequest) (*Outcome, error) {
	if req == nil {
		return nil, xerrors.New("incident request is required")
	}

	id := ulid.Make().String()
	rr, err := s.orch.Run(ctx, id, req)
	if err != nil {
		return nil, fmt.Errorf("triage %s: %w", id, err)
	}

	out := &Outcome{
		TriageID: id,
		Result:   rr.Result,
		Audit:    rr.Audit,
		Omitted:  rr.Failures,
	}

	if rr.Result.Status == StatusNeedsHuman && s.notifier != nil {
		out.Escalated = true
		e := &Escalation{
			TriageID: id,
			Severity: req.Severity,
			Symptom:  req.Symptom,
			Result:   rr.Result,
			Audit:    rr.Audit,
			Omitted:  rr.Failures,
		}
		s.wg.Add(1)
		// escalation must outlive the request context
		go s.escalate(context.WithoutCancel(ctx), e)
	}

	return out, nil
}

// Wait blocks until in-flight escalations have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) escalate(ctx context.Context, e *Escalation) {
	defer s.wg.Done()

	L := s.logger.With("triage_id", e.TriageID, "incident_id", e.Result.IncidentID)

	result := "sent"
	if err := s.notifier.Notify(ctx, e); err != nil {
		result = "error"
		L.Error(ctx, err, "escalation notify failed")
	} else {
		L.Info(ctx, "escalation sent", "status", e.Result.Status)
	}

	if s.metrics != nil {
		s.metrics.EscalationsTotal.WithLabelValues(result).Inc()
	}
}

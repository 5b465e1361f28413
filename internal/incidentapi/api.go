// Package incidentapi exposes the triage swarm over HTTP.
package incidentapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/hiveops/internal/swarm"
)

// TriageService defines the business operations incidentapi needs.
type TriageService interface {
	Triage(ctx context.Context, req *swarm.IncidentRequest) (*swarm.Outcome, error)
	Domains() []swarm.Domain
	Gate() *swarm.AuditGate
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
	mw     []func(http.Handler) http.Handler
}

// New creates a new API handler. mw wraps every /api/v1 route.
func New(logger log.Logger, svc TriageService, mw ...func(http.Handler) http.Handler) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
		mw:     mw,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		for _, mw := range a.mw {
			r.Use(mw)
		}
		r.Post("/incidents/triage", a.handleTriage)
		r.Get("/agents", a.handleAgents)
	})
}

type agentsResponse struct {
	Agents              []swarm.Domain `json:"agents"`
	Count               int            `json:"count"`
	ConfidenceThreshold float64        `json:"confidence_threshold"`
	MaxIterations       int            `json:"max_iterations"`
}

func (a *API) handleAgents(w http.ResponseWriter, _ *http.Request) {
	domains := a.svc.Domains()
	gate := a.svc.Gate()
	writeJSON(w, http.StatusOK, agentsResponse{
		Agents:              domains,
		Count:               len(domains),
		ConfidenceThreshold: gate.Threshold,
		MaxIterations:       gate.MaxIterations,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// nothing to do with errors here
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

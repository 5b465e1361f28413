package incidentapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/hiveops/internal/swarm"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report wire names rather than Go field names
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// decodeIncident parses, defaults and validates a triage request body.
func decodeIncident(r *http.Request) (*swarm.IncidentRequest, error) {
	var req swarm.IncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New("invalid payload")
	}
	req.ApplyDefaults()

	if err := validate.Struct(&req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return nil, errors.New("invalid incident: " + strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid incident: %w", err)
	}
	return &req, nil
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	req, err := decodeIncident(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("hiveops.incident.id", req.IncidentID),
		attribute.String("hiveops.incident.service", req.Service),
	)

	out, err := a.svc.Triage(r.Context(), req)
	if err != nil && r.Context().Err() != nil {
		// client went away or the server deadline hit; nothing was escalated
		a.logger.Warn(r.Context(), "triage abandoned", "incident_id", req.IncidentID, "error", err)
		writeError(w, http.StatusServiceUnavailable, "triage cancelled")
		return
	}
	if err != nil {
		a.logger.Error(r.Context(), err, "triage failed", "incident_id", req.IncidentID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	span.SetAttributes(
		attribute.String("hiveops.triage.id", out.TriageID),
		attribute.String("hiveops.verdict.status", string(out.Result.Status)),
	)

	w.Header().Set("X-Triage-Id", out.TriageID)
	writeJSON(w, http.StatusOK, out.Result)
}

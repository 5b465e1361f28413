// Package slack sends triage escalations to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/hiveops/internal/swarm"
)

const (
	maxTextLen   = 3000
	maxHeaderLen = 150
	httpTimeout  = 10 * time.Second
)

// Notifier posts escalations to a Slack webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Notify is a no-op.
func New(webhookURL string, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Notify posts an escalation to the configured Slack webhook.
// If no webhook URL is configured, it returns nil immediately.
func (n *Notifier) Notify(ctx context.Context, e *swarm.Escalation) error {
	if n.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(buildMessage(e))
	if err != nil {
		return fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req) //nolint:gosec // G704: webhookURL is from trusted config, not user input
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack: webhook returned %d: %s", resp.StatusCode, string(respBody))
	}

	n.logger.Info(ctx, "slack escalation posted", "triage_id", e.TriageID)
	return nil
}

func buildMessage(e *swarm.Escalation) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(e),
			{"type": "divider"},
			fieldsBlock(e),
			{"type": "divider"},
			verdictBlock(e),
			{"type": "divider"},
			recommendationsBlock(e),
			contextBlock(e),
		},
	}
}

func headerBlock(e *swarm.Escalation) map[string]any {
	text := fmt.Sprintf("%s Needs human: %s (%s)", severityEmoji(e.Severity), e.Result.IncidentID, e.Result.Service)
	// Slack rejects header text over 150 characters
	text = truncate(text, maxHeaderLen)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(e *swarm.Escalation) map[string]any {
	r := e.Result
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Status:* %s", r.Status),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Severity:* %s", e.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Environment:* %s", r.Environment),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Confidence:* %.2f", r.Confidence),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*ETA:* %d min", r.MinutesToMitigate),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Signals:* %d (%d omitted)", len(r.Signals), len(e.Omitted)),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func verdictBlock(e *swarm.Escalation) map[string]any {
	text := fmt.Sprintf("*Hypothesis*\n%s\n\n*Suggested action*\n%s", e.Result.Hypothesis, e.Result.SuggestedAction)
	if e.Symptom != "" {
		text = fmt.Sprintf("*Symptom*\n%s\n\n%s", e.Symptom, text)
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(text, maxTextLen),
		},
	}
}

func recommendationsBlock(e *swarm.Escalation) map[string]any {
	var b strings.Builder
	b.WriteString("*Audit*\n")
	for _, rec := range e.Result.AuditRecommendations {
		b.WriteString("• ")
		b.WriteString(rec)
		b.WriteString("\n")
	}

	return map[string]any{
		"type": "section",
		"text": map[string]any{
			"type": "mrkdwn",
			"text": truncate(strings.TrimSuffix(b.String(), "\n"), maxTextLen),
		},
	}
}

func contextBlock(e *swarm.Escalation) map[string]any {
	elements := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("hiveops • triage %s • %s", e.TriageID, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
		},
	}

	return map[string]any{
		"type":     "context",
		"elements": elements,
	}
}

func severityEmoji(severity swarm.Severity) string {
	switch severity {
	case swarm.SeverityCritical, swarm.SeverityHigh:
		return "\U0001f534" // red circle
	case swarm.SeverityMedium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}

// Package slack escalates severe assessments to Slack via incoming webhooks.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/infrasense/internal/assess"
	"github.com/linnemanlabs/infrasense/internal/severity"
)

const httpTimeout = 10 * time.Second

// Notifier posts assessments at or above a minimum severity to a Slack webhook.
type Notifier struct {
	webhookURL string
	min        severity.Level
	client     *http.Client
	logger     log.Logger
}

// New creates a new Slack notifier. If webhookURL is empty, Send is a no-op.
func New(webhookURL string, min severity.Level, logger log.Logger) *Notifier {
	if logger == nil {
		logger = log.Nop()
	}
	return &Notifier{
		webhookURL: webhookURL,
		min:        min,
		client:     &http.Client{Timeout: httpTimeout},
		logger:     logger,
	}
}

// Send posts an assessment to the configured Slack webhook. Results below the
// minimum severity, and any result when no webhook is configured, are skipped.
func (n *Notifier) Send(ctx context.Context, result *assess.Result) error {
	if n.webhookURL == "" || result == nil || result.Final < n.min {
		return nil
	}

	body, err := json.Marshal(buildMessage(result))
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
	return nil
}

// OnResult sends the result in the background so the request is not held
// up by Slack. It matches assess.Hooks.OnResult.
func (n *Notifier) OnResult(ctx context.Context, result *assess.Result) {
	if n.webhookURL == "" || result == nil || result.Final < n.min {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := n.Send(ctx, result); err != nil {
			n.logger.Error(ctx, err, "slack notification failed", "assessment_id", result.ID)
		}
	}()
}

func buildMessage(r *assess.Result) map[string]any {
	return map[string]any{
		"blocks": []map[string]any{
			headerBlock(r),
			{"type": "divider"},
			fieldsBlock(r),
			{"type": "divider"},
			contextBlock(r),
		},
	}
}

func headerBlock(r *assess.Result) map[string]any {
	text := fmt.Sprintf("%s %s severity incident reported", severityEmoji(r.Final), r.Final)

	return map[string]any{
		"type": "header",
		"text": map[string]any{
			"type": "plain_text",
			"text": text,
		},
	}
}

func fieldsBlock(r *assess.Result) map[string]any {
	fields := []map[string]any{
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Final severity:* %s", r.Final),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Text severity:* %s", r.Text.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Image severity:* %s", r.Image.Severity),
		},
		{
			"type": "mrkdwn",
			"text": fmt.Sprintf("*Image confidence:* %.0f%%", r.Image.Confidence*100),
		},
	}

	return map[string]any{
		"type":   "section",
		"fields": fields,
	}
}

func contextBlock(r *assess.Result) map[string]any {
	text := fmt.Sprintf("infrasense • assessment %s", r.ID)
	// assessment IDs are ULIDs and carry their creation time
	if id, err := ulid.Parse(r.ID); err == nil {
		ts := ulid.Time(id.Time())
		text += " • " + ts.UTC().Format("2006-01-02 15:04 UTC")
	}

	return map[string]any{
		"type": "context",
		"elements": []map[string]any{
			{
				"type": "mrkdwn",
				"text": text,
			},
		},
	}
}

func severityEmoji(l severity.Level) string {
	switch l {
	case severity.High:
		return "\U0001f534" // red circle
	case severity.Medium:
		return "\U0001f7e1" // yellow circle
	default:
		return "\U0001f7e2" // green circle
	}
}

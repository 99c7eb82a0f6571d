package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"interviewd/pkg/logx"
)

// WebhookNotifier delivers completion notices as JSON POSTs to an
// external endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: http.DefaultClient,
	}
}

// NotifyCompletion posts the notice. Any non-2xx status is an error.
func (n *WebhookNotifier) NotifyCompletion(ctx context.Context, notice CompletionNotice) error {
	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("failed to marshal completion notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver completion notice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("completion notice rejected with status %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier records completions in the log. Used when no webhook is
// configured.
type LogNotifier struct {
	logger *logx.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{logger: logx.NewLogger("notify")}
}

// NotifyCompletion logs the notice.
func (n *LogNotifier) NotifyCompletion(_ context.Context, notice CompletionNotice) error {
	n.logger.Info("interview completed: participant=%s type=%s at=%s",
		notice.ParticipantName, notice.AssessmentType, notice.CompletedAt.Format("2006-01-02T15:04:05Z"))
	return nil
}

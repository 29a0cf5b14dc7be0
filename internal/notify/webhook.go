// Package notify posts a compact run summary to an operator webhook after
// each run. Notification failures are logged, never fatal.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"toolforge/internal/engine"
	"toolforge/pkg/logx"
)

const defaultTimeout = 10 * time.Second

// Notifier delivers run summaries to a webhook URL.
type Notifier struct {
	logger *logx.Logger
	url    string
	client *http.Client
}

// New creates a notifier. An empty URL disables delivery.
func New(url string, timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Notifier{
		logger: logx.NewLogger("notify"),
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

type payload struct {
	RunID     string   `json:"run_id"`
	Date      string   `json:"date"`
	Passed    int      `json:"passed"`
	Abandoned int      `json:"abandoned"`
	Fatal     int      `json:"fatal"`
	Tools     []string `json:"tools"`
	Ref       string   `json:"ref,omitempty"`
}

// Send posts the summary. Call only when Enabled.
func (n *Notifier) Send(ctx context.Context, summary *engine.RunSummary, committedRef string) error {
	counts := summary.CountByState()
	body := payload{
		RunID:     summary.RunID,
		Date:      summary.FinishedAt.UTC().Format("2006-01-02"),
		Passed:    counts[engine.StatePassed],
		Abandoned: counts[engine.StateAbandoned],
		Fatal:     counts[engine.StateFatalError],
		Ref:       committedRef,
	}
	for _, outcome := range summary.Passed() {
		body.Tools = append(body.Tools, outcome.Spec.Name)
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.logger.Info("run summary delivered")
	return nil
}

// Package publisher commits passing artifacts from a run into a content
// store laid out as tools/YYYY-MM-DD/<tool_name>/ plus a root index, and
// returns a reference to the committed content.
package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"toolforge/internal/engine"
	"toolforge/pkg/logx"
)

var (
	// ErrConflict means the target date path already holds content. The
	// caller must pick a non-colliding path; the publisher never overwrites.
	ErrConflict = errors.New("publish target already has content for this date")

	// ErrUnavailable means the content store could not be reached or
	// written. It aborts the run; no partial publish survives.
	ErrUnavailable = errors.New("content store unavailable")
)

// Publisher writes run artifacts to a directory-backed content store.
type Publisher struct {
	logger  *logx.Logger
	rootDir string
	now     func() time.Time
}

// New creates a publisher rooted at rootDir.
func New(rootDir string) *Publisher {
	return &Publisher{
		logger:  logx.NewLogger("publisher"),
		rootDir: rootDir,
		now:     time.Now,
	}
}

// Commit persists every passed outcome in the summary and updates the run
// index. Outcomes are committed in a deterministic order (by topic, then
// name) regardless of the order the engine produced them. Returns a content
// reference derived from everything written.
func (p *Publisher) Commit(ctx context.Context, summary *engine.RunSummary) (string, error) {
	passed := summary.Passed()
	if len(passed) == 0 {
		p.logger.Info("nothing to publish")
		return "", nil
	}
	sort.Slice(passed, func(i, j int) bool {
		if passed[i].Spec.Topic != passed[j].Spec.Topic {
			return passed[i].Spec.Topic < passed[j].Spec.Topic
		}
		return passed[i].Spec.Name < passed[j].Spec.Name
	})

	runDate := p.now().UTC().Format("2006-01-02")
	dateDir := filepath.Join(p.rootDir, "tools", runDate)

	if entries, err := os.ReadDir(dateDir); err == nil && len(entries) > 0 {
		return "", fmt.Errorf("%w: %s", ErrConflict, dateDir)
	}
	if err := os.MkdirAll(dateDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	digest := sha256.New()
	for _, outcome := range passed {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if err := p.writeTool(dateDir, runDate, outcome, digest); err != nil {
			return "", err
		}
	}

	if err := p.writeRunSummary(dateDir, summary); err != nil {
		return "", err
	}
	if err := p.updateIndex(runDate, passed); err != nil {
		return "", err
	}

	ref := hex.EncodeToString(digest.Sum(nil))[:12]
	p.logger.Info("published %d tools for %s (ref %s)", len(passed), runDate, ref)
	return ref, nil
}

// writeTool lays out one tool directory: source, tests, a README, and a
// metadata record, all fed into the commit digest.
func (p *Publisher) writeTool(dateDir, runDate string, outcome engine.ToolOutcome, digest io.Writer) error {
	winning := outcome.Winning()
	if winning == nil {
		return fmt.Errorf("outcome for %s has no winning attempt", outcome.Spec.Name)
	}

	toolDir := filepath.Join(dateDir, outcome.Spec.Name)
	if err := os.MkdirAll(toolDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	meta, err := json.MarshalIndent(map[string]any{
		"tool_name":    outcome.Spec.Name,
		"display_name": outcome.Spec.DisplayName,
		"description":  outcome.Spec.Description,
		"topic":        outcome.Spec.Topic,
		"date":         runDate,
		"attempts":     len(outcome.Attempts),
		"tests_passed": winning.Result.TestsPassed,
	}, "", "  ")
	if err != nil {
		return err
	}

	// Fixed file order keeps the commit reference deterministic.
	files := []struct{ name, content string }{
		{outcome.Spec.Name + ".py", winning.Source},
		{"test_" + outcome.Spec.Name + ".py", winning.Test},
		{"README.md", toolReadme(outcome.Spec)},
		{"metadata.json", string(meta) + "\n"},
	}
	for _, f := range files {
		path := filepath.Join(toolDir, f.name)
		if err := os.WriteFile(path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		_, _ = digest.Write([]byte(f.name))
		_, _ = digest.Write([]byte(f.content))
	}
	return nil
}

// writeRunSummary records the full outcome set, including attempt histories
// for non-passed specifications, as the run's audit trail.
func (p *Publisher) writeRunSummary(dateDir string, summary *engine.RunSummary) error {
	type attemptRecord struct {
		Index    int    `json:"index"`
		Status   string `json:"status"`
		ExitCode int    `json:"exit_code"`
		Feedback string `json:"feedback,omitempty"`
	}
	type outcomeRecord struct {
		Name     string          `json:"name"`
		Topic    string          `json:"topic"`
		State    string          `json:"state"`
		Reason   string          `json:"reason,omitempty"`
		Attempts []attemptRecord `json:"attempts,omitempty"`
	}

	records := make([]outcomeRecord, 0, len(summary.Outcomes))
	for _, outcome := range summary.Outcomes {
		rec := outcomeRecord{
			Name:   outcome.Spec.Name,
			Topic:  outcome.Spec.Topic,
			State:  string(outcome.State),
			Reason: outcome.Reason,
		}
		if outcome.State != engine.StatePassed {
			for _, attempt := range outcome.Attempts {
				rec.Attempts = append(rec.Attempts, attemptRecord{
					Index:    attempt.Index,
					Status:   string(attempt.Status),
					ExitCode: attempt.Result.ExitCode,
					Feedback: attempt.Feedback,
				})
			}
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	payload, err := json.MarshalIndent(map[string]any{
		"run_id":   summary.RunID,
		"started":  summary.StartedAt.UTC().Format(time.RFC3339),
		"finished": summary.FinishedAt.UTC().Format(time.RFC3339),
		"outcomes": records,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dateDir, "run.json"), append(payload, '\n'), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// updateIndex prepends the day's tools to the root index.md.
func (p *Publisher) updateIndex(runDate string, passed []engine.ToolOutcome) error {
	indexPath := filepath.Join(p.rootDir, "index.md")

	var section strings.Builder
	fmt.Fprintf(&section, "## %s\n\n", runDate)
	for _, outcome := range passed {
		fmt.Fprintf(&section, "- [%s](tools/%s/%s/) — %s\n",
			outcome.Spec.DisplayName, runDate, outcome.Spec.Name, firstLine(outcome.Spec.Description))
	}
	section.WriteString("\n")

	existing, err := os.ReadFile(indexPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		existing = []byte("# Generated Tools\n\nSmall tested tools produced by the pipeline, one batch per day.\n\n")
	}

	content := existing
	if header, rest, found := strings.Cut(string(existing), "## "); found {
		content = []byte(header + section.String() + "## " + rest)
	} else {
		content = append(existing, []byte(section.String())...)
	}

	if err := os.WriteFile(indexPath, content, 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// toolReadme renders the per-tool README from the specification.
func toolReadme(spec engine.ToolSpecification) string {
	title := spec.DisplayName
	if title == "" {
		title = spec.Name
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", title, spec.Description)
	if spec.Topic != "" {
		fmt.Fprintf(&b, "## Topic\n\n%s\n\n", spec.Topic)
	}
	fmt.Fprintf(&b, "## Usage\n\n```bash\npython %s.py --help\n```\n\n", spec.Name)
	fmt.Fprintf(&b, "## Testing\n\n```bash\npython -m pytest test_%s.py\n```\n", spec.Name)
	return b.String()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

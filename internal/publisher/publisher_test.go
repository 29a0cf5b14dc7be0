package publisher

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"toolforge/internal/engine"
	"toolforge/pkg/sandbox"
)

func passedOutcome(name, topic string) engine.ToolOutcome {
	return engine.ToolOutcome{
		Spec: engine.ToolSpecification{
			Name:        name,
			DisplayName: name,
			Description: "does " + name + " things",
			Topic:       topic,
		},
		State: engine.StatePassed,
		Attempts: []engine.BuildAttempt{{
			Index:  0,
			Source: "def main(): pass\n",
			Test:   "def test_main(): pass\n",
			Result: sandbox.Result{ExitCode: 0, TestsPassed: 3},
			Status: engine.AttemptPassed,
		}},
	}
}

func abandonedOutcome(name string) engine.ToolOutcome {
	return engine.ToolOutcome{
		Spec:   engine.ToolSpecification{Name: name, Topic: "t"},
		State:  engine.StateAbandoned,
		Reason: engine.ReasonExhausted,
		Attempts: []engine.BuildAttempt{
			{Index: 0, Status: engine.AttemptFailed, Feedback: "AssertionError", Result: sandbox.Result{ExitCode: 1}},
			{Index: 1, Status: engine.AttemptFailed, Feedback: "TypeError", Result: sandbox.Result{ExitCode: 1}},
		},
	}
}

func testSummary(outcomes ...engine.ToolOutcome) *engine.RunSummary {
	return &engine.RunSummary{
		RunID:      "run-1",
		StartedAt:  time.Now().Add(-time.Hour),
		FinishedAt: time.Now(),
		Outcomes:   outcomes,
	}
}

func fixedPublisher(root string) *Publisher {
	p := New(root)
	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestCommitWritesToolLayout(t *testing.T) {
	root := t.TempDir()
	p := fixedPublisher(root)

	ref, err := p.Commit(context.Background(), testSummary(passedOutcome("log_scrubber", "logs")))
	require.NoError(t, err)
	assert.Len(t, ref, 12)

	toolDir := filepath.Join(root, "tools", "2026-08-31", "log_scrubber")
	for _, name := range []string{"log_scrubber.py", "test_log_scrubber.py", "README.md", "metadata.json"} {
		_, err := os.Stat(filepath.Join(toolDir, name))
		assert.NoError(t, err, name)
	}

	meta, err := os.ReadFile(filepath.Join(toolDir, "metadata.json"))
	require.NoError(t, err)
	var parsed map[string]any
	require.NoError(t, json.Unmarshal(meta, &parsed))
	assert.Equal(t, "logs", parsed["topic"])
	assert.Equal(t, "2026-08-31", parsed["date"])

	readme, err := os.ReadFile(filepath.Join(toolDir, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# log_scrubber")
	assert.Contains(t, string(readme), "does log_scrubber things")
	assert.Contains(t, string(readme), "python log_scrubber.py --help")
	assert.Contains(t, string(readme), "pytest test_log_scrubber.py")
}

func TestCommitRunSummaryKeepsFailureHistory(t *testing.T) {
	root := t.TempDir()
	p := fixedPublisher(root)

	_, err := p.Commit(context.Background(), testSummary(
		passedOutcome("good_tool", "t"), abandonedOutcome("bad_tool")))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(root, "tools", "2026-08-31", "run.json"))
	require.NoError(t, err)

	var run struct {
		Outcomes []struct {
			Name     string `json:"name"`
			State    string `json:"state"`
			Attempts []struct {
				Feedback string `json:"feedback"`
			} `json:"attempts"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(raw, &run))
	require.Len(t, run.Outcomes, 2)

	assert.Equal(t, "bad_tool", run.Outcomes[0].Name)
	require.Len(t, run.Outcomes[0].Attempts, 2, "non-passed outcomes keep full attempt history")
	assert.Equal(t, "AssertionError", run.Outcomes[0].Attempts[0].Feedback)
	assert.Empty(t, run.Outcomes[1].Attempts, "passed outcomes omit attempt history")
}

func TestCommitUpdatesIndex(t *testing.T) {
	root := t.TempDir()
	p := fixedPublisher(root)

	_, err := p.Commit(context.Background(), testSummary(passedOutcome("alpha", "t")))
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(root, "index.md"))
	require.NoError(t, err)
	assert.Contains(t, string(index), "## 2026-08-31")
	assert.Contains(t, string(index), "tools/2026-08-31/alpha/")
}

func TestCommitPrependsNewestDate(t *testing.T) {
	root := t.TempDir()

	p := New(root)
	p.now = func() time.Time { return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC) }
	_, err := p.Commit(context.Background(), testSummary(passedOutcome("older", "t")))
	require.NoError(t, err)

	p.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	_, err = p.Commit(context.Background(), testSummary(passedOutcome("newer", "t")))
	require.NoError(t, err)

	index, err := os.ReadFile(filepath.Join(root, "index.md"))
	require.NoError(t, err)
	newest := string(index)
	assert.Less(t, strings.Index(newest, "2026-08-31"), strings.Index(newest, "2026-08-30"), "newest section first")
}

func TestCommitConflictOnSameDay(t *testing.T) {
	root := t.TempDir()
	p := fixedPublisher(root)

	_, err := p.Commit(context.Background(), testSummary(passedOutcome("first", "t")))
	require.NoError(t, err)

	_, err = p.Commit(context.Background(), testSummary(passedOutcome("second", "t")))
	require.ErrorIs(t, err, ErrConflict)
}

func TestCommitNothingToPublish(t *testing.T) {
	p := fixedPublisher(t.TempDir())

	ref, err := p.Commit(context.Background(), testSummary(abandonedOutcome("failed")))
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestCommitDeterministicRef(t *testing.T) {
	summary := testSummary(passedOutcome("b_tool", "t"), passedOutcome("a_tool", "t"))

	ref1, err := fixedPublisher(t.TempDir()).Commit(context.Background(), summary)
	require.NoError(t, err)
	ref2, err := fixedPublisher(t.TempDir()).Commit(context.Background(), summary)
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2, "same content yields the same reference")
}

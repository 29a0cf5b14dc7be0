// Package pipeline wires the run phases together: purge, ingest, embed,
// select, ideate, build-validate-correct, publish, notify. Each run is one
// pass through all phases under a global deadline.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"toolforge/internal/codegen"
	"toolforge/internal/engine"
	"toolforge/internal/ideation"
	"toolforge/internal/index"
	"toolforge/internal/notify"
	"toolforge/internal/publisher"
	"toolforge/internal/sources"
	"toolforge/internal/topics"
	"toolforge/pkg/config"
	"toolforge/pkg/corpus"
	"toolforge/pkg/embed"
	"toolforge/pkg/llm"
	"toolforge/pkg/logx"
	"toolforge/pkg/metrics"
	"toolforge/pkg/sandbox"
)

// Pipeline owns the collaborators for a run.
type Pipeline struct {
	logger   *logx.Logger
	cfg      config.Config
	store    *corpus.Store
	srcs     []sources.Source
	embedder embed.Engine
	client   llm.Client
	executor sandbox.Executor
	pub      *publisher.Publisher
	notifier *notify.Notifier
}

// New builds a pipeline from configuration.
func New(cfg config.Config) (*Pipeline, error) {
	store, err := corpus.Open(cfg.Corpus.DBPath)
	if err != nil {
		return nil, err
	}

	srcs, err := sources.FromConfig(cfg.Sources)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	embedder, err := embed.NewEngine(cfg.Embedding.Provider, cfg.Embedding.Model,
		cfg.Embedding.Host, cfg.Embedding.APIKey())
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &Pipeline{
		logger:   logx.NewLogger("pipeline"),
		cfg:      cfg,
		store:    store,
		srcs:     srcs,
		embedder: embedder,
		client:   client,
		executor: selectExecutor(cfg.Sandbox),
		pub:      publisher.New(cfg.Publisher.RootDir),
		notifier: notify.New(cfg.Notify.WebhookURL, cfg.Notify.Timeout),
	}, nil
}

// selectExecutor prefers the container sandbox, falling back to the local
// subprocess executor when no container runtime is available.
func selectExecutor(cfg config.SandboxConfig) sandbox.Executor {
	if cfg.Executor != "local" {
		docker := sandbox.NewDockerExecutor(cfg.Image)
		if docker.Available() {
			return docker
		}
		logx.NewLogger("pipeline").Warn("container runtime unavailable, using local executor")
	}
	return sandbox.NewLocalExecutor()
}

// Close releases the pipeline's resources.
func (p *Pipeline) Close() error {
	return p.store.Close()
}

// Run executes one full pass. Run-level collaborator failures (corpus,
// embedding, publisher) return an error and nothing is partially published;
// per-source and per-specification failures are isolated and reported in the
// summary instead.
func (p *Pipeline) Run(ctx context.Context) (*engine.RunSummary, error) {
	runID := uuid.NewString()[:8]
	startedAt := time.Now().UTC()
	p.logger.Info("run %s starting", runID)

	deadlineCtx, cancel := context.WithTimeout(ctx, p.cfg.Run.RunDeadline)
	defer cancel()

	if _, err := p.store.Purge(deadlineCtx, p.cfg.Corpus.Retention); err != nil {
		return nil, fmt.Errorf("corpus purge failed: %w", err)
	}

	added, err := p.ingest(deadlineCtx)
	if err != nil {
		return nil, err
	}

	items, err := p.store.RecentItems(deadlineCtx, p.cfg.Corpus.Window)
	if err != nil {
		return nil, fmt.Errorf("corpus read failed: %w", err)
	}
	if err := p.embedMissing(deadlineCtx, items); err != nil {
		return nil, err
	}

	idx := index.New(items)
	selector := topics.NewSelector(p.cfg.Run.SimilarityThreshold, p.cfg.Corpus.Window)
	selected := selector.Select(idx, p.cfg.Run.TopicsPerRun)
	metrics.RecordTopics(len(selected))

	specs := p.ideate(deadlineCtx, selected)

	eng := engine.New(codegen.New(p.client), p.executor, engine.Options{
		MaxAttempts: p.cfg.Run.MaxAttemptsPerTool,
		SandboxOpts: sandboxOpts(p.cfg),
	})
	outcomes := eng.RunAll(deadlineCtx, specs, p.cfg.Run.MaxConcurrentTools)

	summary := &engine.RunSummary{
		RunID:      runID,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Outcomes:   outcomes,
	}
	recordOutcomeMetrics(outcomes)

	// Publishing uses the parent context: a run deadline abandons in-flight
	// loops but never discards work that already passed.
	ref, err := p.pub.Commit(ctx, summary)
	if err != nil {
		return summary, fmt.Errorf("publish failed: %w", err)
	}

	counts := summary.CountByState()
	if err := p.store.RecordRun(ctx, corpus.RunRecord{
		RunID:          runID,
		RunDate:        startedAt.Format("2006-01-02"),
		ItemsAdded:     added,
		TopicsSelected: len(selected),
		ToolsPassed:    counts[engine.StatePassed],
		ToolsAbandoned: counts[engine.StateAbandoned],
		ToolsFatal:     counts[engine.StateFatalError],
		CommittedRef:   ref,
	}); err != nil {
		p.logger.Error("failed to record run: %v", err)
	}

	if p.notifier.Enabled() {
		if err := p.notifier.Send(ctx, summary, ref); err != nil {
			p.logger.Warn("notification failed: %v", err)
		}
	}

	metrics.RecordRunDuration(time.Since(startedAt))
	p.logger.Info("run %s finished: %d passed, %d abandoned, %d fatal",
		runID, counts[engine.StatePassed], counts[engine.StateAbandoned], counts[engine.StateFatalError])
	return summary, nil
}

// ingest fetches every configured source and appends new items. A failing
// source is skipped; ingestion only fails as a whole when the store does.
func (p *Pipeline) ingest(ctx context.Context) (int, error) {
	total := 0
	for _, src := range p.srcs {
		items, err := src.Fetch(ctx)
		if err != nil {
			p.logger.Warn("source %s failed: %v", src.Name(), err)
			continue
		}
		n, err := p.store.AppendBatch(ctx, items)
		if err != nil {
			return total, fmt.Errorf("corpus append failed: %w", err)
		}
		metrics.RecordIngested(src.Name(), n)
		total += n
	}
	p.logger.Info("ingested %d new items from %d sources", total, len(p.srcs))
	return total, nil
}

// embedMissing computes embeddings for items that lack one, updating both
// the store and the in-memory slice feeding the index.
func (p *Pipeline) embedMissing(ctx context.Context, items []corpus.Item) error {
	var pending []int
	var texts []string
	for i := range items {
		if len(items[i].Embedding) == 0 {
			pending = append(pending, i)
			texts = append(texts, items[i].Text())
		}
	}
	if len(pending) == 0 {
		return nil
	}

	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding failed: %w", err)
	}
	for j, i := range pending {
		items[i].Embedding = vecs[j]
		if err := p.store.SetEmbedding(ctx, items[i].ID, vecs[j]); err != nil {
			return fmt.Errorf("embedding store failed: %w", err)
		}
	}
	p.logger.Info("embedded %d items with %s", len(pending), p.embedder.Name())
	return nil
}

// ideate generates specifications per topic. One topic's failure is logged
// and skipped; the run continues with the remaining topics.
func (p *Pipeline) ideate(ctx context.Context, selected []topics.Topic) []engine.ToolSpecification {
	gen := ideation.New(p.client)
	var specs []engine.ToolSpecification
	for _, topic := range selected {
		out, err := gen.Generate(ctx, topic, p.cfg.Run.IdeasPerTopic)
		if err != nil {
			p.logger.Warn("skipping topic %q: %v", topic.Label, err)
			continue
		}
		specs = append(specs, out...)
	}
	return specs
}

func sandboxOpts(cfg config.Config) sandbox.Opts {
	opts := sandbox.DefaultOpts()
	opts.Timeout = cfg.Run.SandboxTimeout
	opts.WorkRoot = cfg.Sandbox.WorkRoot
	if cfg.Sandbox.CPUs != "" || cfg.Sandbox.Memory != "" || cfg.Sandbox.PIDs > 0 {
		opts.ResourceLimits = &sandbox.ResourceLimits{
			CPUs:   cfg.Sandbox.CPUs,
			Memory: cfg.Sandbox.Memory,
			PIDs:   cfg.Sandbox.PIDs,
		}
	}
	return opts
}

func recordOutcomeMetrics(outcomes []engine.ToolOutcome) {
	for _, outcome := range outcomes {
		metrics.RecordOutcome(string(outcome.State))
		for _, attempt := range outcome.Attempts {
			metrics.RecordAttempt(string(attempt.Status))
		}
	}
}

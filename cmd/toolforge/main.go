// Command toolforge runs one pass of the news-to-tools pipeline: ingest
// trending signals, select topics, generate tool ideas, build and validate
// each one in a sandbox, and publish what passes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"toolforge/internal/pipeline"
	"toolforge/pkg/config"
	"toolforge/pkg/logx"
	"toolforge/pkg/metrics"
	"toolforge/pkg/version"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	var showVersion bool
	var showUsage bool
	flag.StringVar(&configPath, "config", "", "Path to config file (default: built-in defaults)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.BoolVar(&showUsage, "usage", false, "Report recorded provider token usage from Prometheus and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version.String())
		return 0
	}

	logger := logx.NewLogger("toolforge")

	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			logger.Error("failed to load config: %v", err)
			return 1
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config: %v", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if showUsage {
		return reportUsage(ctx, logger, cfg)
	}

	var metricsSrv *metrics.Server
	if cfg.Metrics.ListenAddr != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.ListenAddr)
		metricsSrv.Start()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		logger.Error("failed to build pipeline: %v", err)
		return 1
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("close failed: %v", err)
		}
	}()

	summary, err := p.Run(ctx)
	if err != nil {
		logger.Error("run failed: %v", err)
		return 1
	}
	if len(summary.Passed()) == 0 {
		logger.Warn("run completed with no passing tools")
		return 2
	}
	return 0
}

// reportUsage prints the token spend recorded for the configured provider,
// queried back out of the Prometheus server the pipeline exports to.
func reportUsage(ctx context.Context, logger *logx.Logger, cfg config.Config) int {
	if cfg.Metrics.PrometheusURL == "" {
		logger.Error("metrics.prometheus_url must be set to report usage")
		return 1
	}

	qs, err := metrics.NewQueryService(cfg.Metrics.PrometheusURL)
	if err != nil {
		logger.Error("failed to connect to prometheus: %v", err)
		return 1
	}

	usage, err := qs.GetUsage(ctx, cfg.LLM.Provider)
	if err != nil {
		logger.Error("failed to query usage: %v", err)
		return 1
	}
	fmt.Printf("%s: %d requests, %d prompt + %d completion = %d tokens\n",
		usage.Provider, usage.Requests, usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens)

	byModel, err := qs.GetUsageByModel(ctx, cfg.LLM.Provider)
	if err != nil {
		logger.Error("failed to query per-model usage: %v", err)
		return 1
	}
	models := make([]string, 0, len(byModel))
	for name := range byModel {
		models = append(models, name)
	}
	sort.Strings(models)
	for _, name := range models {
		u := byModel[name]
		fmt.Printf("  %s: %d prompt + %d completion = %d tokens\n",
			name, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
	}
	return 0
}

package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// UsageMetrics aggregates recorded token usage for one provider.
type UsageMetrics struct {
	Provider         string `json:"provider"`
	PromptTokens     int64  `json:"prompt_tokens"`
	CompletionTokens int64  `json:"completion_tokens"`
	TotalTokens      int64  `json:"total_tokens"`
	Requests         int64  `json:"requests"`
}

// QueryService queries recorded metrics back out of Prometheus, used for
// operator reporting on generative-service spend.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a query service against a Prometheus server.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{Address: prometheusURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// GetUsage retrieves aggregated token usage for a provider.
func (q *QueryService) GetUsage(ctx context.Context, provider string) (*UsageMetrics, error) {
	usage := &UsageMetrics{Provider: provider}

	prompt, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{provider=%q, type="prompt"})`, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to query prompt tokens: %w", err)
	}
	usage.PromptTokens = prompt

	completion, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{provider=%q, type="completion"})`, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to query completion tokens: %w", err)
	}
	usage.CompletionTokens = completion
	usage.TotalTokens = prompt + completion

	requests, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_requests_total{provider=%q})`, provider))
	if err != nil {
		return nil, fmt.Errorf("failed to query request count: %w", err)
	}
	usage.Requests = requests

	return usage, nil
}

// GetUsageByModel breaks usage down per model for a provider.
func (q *QueryService) GetUsageByModel(ctx context.Context, provider string) (map[string]*UsageMetrics, error) {
	modelsResult, _, err := q.queryAPI.Query(ctx,
		fmt.Sprintf(`group by (model) (llm_tokens_total{provider=%q})`, provider), time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["model"]; ok {
				models = append(models, string(name))
			}
		}
	}

	result := make(map[string]*UsageMetrics, len(models))
	for _, modelName := range models {
		usage := &UsageMetrics{Provider: provider}

		prompt, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{provider=%q, model=%q, type="prompt"})`, provider, modelName))
		if err != nil {
			return nil, fmt.Errorf("failed to query prompt tokens for %s: %w", modelName, err)
		}
		completion, err := q.scalar(ctx, fmt.Sprintf(`sum(llm_tokens_total{provider=%q, model=%q, type="completion"})`, provider, modelName))
		if err != nil {
			return nil, fmt.Errorf("failed to query completion tokens for %s: %w", modelName, err)
		}
		usage.PromptTokens = prompt
		usage.CompletionTokens = completion
		usage.TotalTokens = prompt + completion
		result[modelName] = usage
	}
	return result, nil
}

// scalar runs an instant query and returns the first sample as int64.
func (q *QueryService) scalar(ctx context.Context, query string) (int64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return int64(vector[0].Value), nil
	}
	return 0, nil
}

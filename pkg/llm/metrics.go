package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"toolforge/pkg/llm/llmerrors"
)

//nolint:gochecknoglobals // Prometheus collectors are registered once per process
var (
	llmRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total number of generative service requests by provider, model, status, and error type",
		},
		[]string{"provider", "model", "status", "error_type"},
	)
	llmTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total number of tokens used in generative service requests",
		},
		[]string{"provider", "model", "type"},
	)
	llmRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Duration of generative service requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
)

// MetricsClient wraps a Client and records Prometheus metrics per request.
// Token usage is approximated with tiktoken since not every provider reports
// usage in its response.
type MetricsClient struct {
	client   Client
	provider string
	counter  *TokenCounter
}

// NewMetricsClient creates a metrics-recording wrapper around a client.
func NewMetricsClient(client Client, provider string) *MetricsClient {
	counter, err := NewTokenCounter()
	if err != nil {
		counter = nil // Count() falls back to character estimation
	}
	return &MetricsClient{
		client:   client,
		provider: provider,
		counter:  counter,
	}
}

// Complete implements the Client interface.
func (m *MetricsClient) Complete(ctx context.Context, in CompletionRequest) (CompletionResponse, error) {
	start := time.Now()
	resp, err := m.client.Complete(ctx, in)
	duration := time.Since(start)

	model := m.client.ModelName()
	status := "success"
	errorType := ""
	if err != nil {
		status = "error"
		errorType = llmerrors.TypeOf(err).String()
	}

	llmRequestsTotal.WithLabelValues(m.provider, model, status, errorType).Inc()
	llmRequestDuration.WithLabelValues(m.provider, model).Observe(duration.Seconds())

	if err == nil {
		var promptText string
		for i := range in.Messages {
			promptText += in.Messages[i].Content + "\n"
		}
		llmTokensTotal.WithLabelValues(m.provider, model, "prompt").
			Add(float64(m.counter.Count(promptText)))
		llmTokensTotal.WithLabelValues(m.provider, model, "completion").
			Add(float64(m.counter.Count(resp.Content)))
	}

	return resp, err
}

// ModelName returns the model name of the wrapped client.
func (m *MetricsClient) ModelName() string {
	return m.client.ModelName()
}

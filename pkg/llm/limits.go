package llm

import (
	"context"
	"time"
)

// BoundedClient enforces the operator-configured request limits on every
// Complete call: a wall-clock timeout so a hung provider cannot stall a build
// loop, a ceiling on requested tokens, and a default temperature for requests
// that leave it unset. A zero timeout or token ceiling disables that bound.
type BoundedClient struct {
	client      Client
	timeout     time.Duration
	maxTokens   int
	temperature float32
}

// NewBoundedClient wraps a client with the given limits.
func NewBoundedClient(client Client, timeout time.Duration, maxTokens int, temperature float32) *BoundedClient {
	return &BoundedClient{
		client:      client,
		timeout:     timeout,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

// Complete implements Client. The timeout covers the whole call, transport
// retries included.
func (b *BoundedClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if b.maxTokens > 0 && (req.MaxTokens <= 0 || req.MaxTokens > b.maxTokens) {
		req.MaxTokens = b.maxTokens
	}
	if req.Temperature == 0 {
		req.Temperature = b.temperature
	}

	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	return b.client.Complete(ctx, req)
}

// ModelName returns the model name of the wrapped client.
func (b *BoundedClient) ModelName() string {
	return b.client.ModelName()
}

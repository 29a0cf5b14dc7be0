package llm

import (
	"context"
	"math"
	"time"

	"toolforge/pkg/llm/llmerrors"
	"toolforge/pkg/logx"
)

// RetryConfig defines configuration for transport-level retry behavior.
// This is distinct from the engine's per-specification attempt budget: it only
// smooths over transient network and rate-limit failures within one request.
type RetryConfig struct {
	MaxRetries    int           // Maximum number of retry attempts
	InitialDelay  time.Duration // Initial delay before first retry
	MaxDelay      time.Duration // Maximum delay between retries
	BackoffFactor float64       // Multiplier for exponential backoff
	Jitter        bool          // Add random jitter to prevent thundering herd
}

// DefaultRetryConfig provides reasonable defaults for retry behavior.
//
//nolint:gochecknoglobals // Package default, read-only
var DefaultRetryConfig = RetryConfig{
	MaxRetries:    3,
	InitialDelay:  500 * time.Millisecond,
	MaxDelay:      30 * time.Second,
	BackoffFactor: 2.0,
	Jitter:        true,
}

// RetryableClient wraps a Client with exponential-backoff retry logic.
type RetryableClient struct {
	client Client
	config RetryConfig
	logger *logx.Logger
}

// NewRetryableClient creates a new retryable client.
func NewRetryableClient(client Client, cfg RetryConfig) *RetryableClient {
	return &RetryableClient{
		client: client,
		config: cfg,
		logger: logx.NewLogger("llm-retry"),
	}
}

// Complete implements Client with retry logic. Non-retryable errors (auth,
// unavailable) pass through immediately; retryable errors that survive the
// full budget are promoted to ErrorTypeUnavailable so callers can treat the
// service as down.
func (r *RetryableClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.calculateDelay(attempt)
			r.logger.Debug("retrying request in %s (attempt %d/%d): %v",
				delay, attempt, r.config.MaxRetries, lastErr)

			select {
			case <-ctx.Done():
				return CompletionResponse{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := r.client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		classified := llmerrors.Wrap(err)
		if !classified.IsRetryable() {
			return CompletionResponse{}, classified
		}
		// A malformed response is the caller's problem to feed back into the
		// next build attempt, not something another transport retry can fix.
		if classified.Type == llmerrors.ErrorTypeMalformed {
			return CompletionResponse{}, classified
		}
	}

	return CompletionResponse{}, llmerrors.NewUnavailableError(lastErr, r.config.MaxRetries+1)
}

// ModelName returns the model name of the wrapped client.
func (r *RetryableClient) ModelName() string {
	return r.client.ModelName()
}

// calculateDelay computes the delay for the given retry attempt.
func (r *RetryableClient) calculateDelay(attempt int) time.Duration {
	delay := time.Duration(float64(r.config.InitialDelay) * math.Pow(r.config.BackoffFactor, float64(attempt-1)))

	if delay > r.config.MaxDelay {
		delay = r.config.MaxDelay
	}

	if r.config.Jitter {
		jitterFactor := 2*time.Now().UnixNano()%2 - 1 // -1 or 1
		jitter := time.Duration(float64(delay) * 0.1 * float64(jitterFactor))
		delay += jitter
		if delay < 0 {
			delay = r.config.InitialDelay
		}
	}

	return delay
}

package llm

import (
	"context"
	"sync"

	"toolforge/pkg/llm/llmerrors"
)

// MockClient is a scripted Client implementation for tests. Responses and
// errors are consumed in order; when the script runs out, the last entry
// repeats.
type MockClient struct {
	mu        sync.Mutex
	script    []MockResponse
	pos       int
	Requests  []CompletionRequest // Every request received, in order
	modelName string
}

// MockResponse is one scripted response or error.
type MockResponse struct {
	Response CompletionResponse
	Err      error
}

// NewMockClient creates a mock client with the given script.
func NewMockClient(script ...MockResponse) *MockClient {
	return &MockClient{script: script, modelName: "mock-model"}
}

// MockText is shorthand for a successful text response.
func MockText(content string) MockResponse {
	return MockResponse{Response: CompletionResponse{Content: content, StopReason: "end_turn"}}
}

// MockError is shorthand for a classified error response.
func MockError(errorType llmerrors.ErrorType, message string) MockResponse {
	return MockResponse{Err: llmerrors.NewError(errorType, message)}
}

// Complete implements the Client interface.
func (m *MockClient) Complete(_ context.Context, in CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, in)

	if len(m.script) == 0 {
		return CompletionResponse{}, llmerrors.NewError(llmerrors.ErrorTypeUnknown, "mock client has no script")
	}

	entry := m.script[m.pos]
	if m.pos < len(m.script)-1 {
		m.pos++
	}
	if entry.Err != nil {
		return CompletionResponse{}, entry.Err
	}
	return entry.Response, nil
}

// ModelName returns the mock model name.
func (m *MockClient) ModelName() string {
	return m.modelName
}

// CallCount returns how many requests the mock has received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// LastRequest returns the most recent request, or false if none were made.
func (m *MockClient) LastRequest() (CompletionRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Requests) == 0 {
		return CompletionRequest{}, false
	}
	return m.Requests[len(m.Requests)-1], true
}

package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockClient provides a controllable implementation of Client for testing.
// Responses and errors are consumed in order; once responses are exhausted
// the last one is repeated so long scripted conversations stay simple.
type MockClient struct {
	mu            sync.Mutex
	responses     []CompletionResponse
	responseIndex int
	errors        []error
	errorIndex    int
	repeatLast    bool

	// Requests records every request received, for assertions.
	Requests []CompletionRequest
}

// NewMockClient creates a new mock client with predefined responses.
func NewMockClient(responses []CompletionResponse, errors []error) *MockClient {
	return &MockClient{
		responses: responses,
		errors:    errors,
	}
}

// NewRepeatingMockClient creates a mock that repeats its final response forever.
func NewRepeatingMockClient(responses ...CompletionResponse) *MockClient {
	return &MockClient{
		responses:  responses,
		repeatLast: true,
	}
}

// Complete returns the next predefined response or error.
func (m *MockClient) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Requests = append(m.Requests, req)

	if m.errorIndex < len(m.errors) && m.errors[m.errorIndex] != nil {
		err := m.errors[m.errorIndex]
		m.errorIndex++
		return CompletionResponse{}, err
	}

	if m.responseIndex >= len(m.responses) {
		if m.repeatLast && len(m.responses) > 0 {
			return m.responses[len(m.responses)-1], nil
		}
		return CompletionResponse{}, fmt.Errorf("mock client: no more responses")
	}

	resp := m.responses[m.responseIndex]
	m.responseIndex++
	return resp, nil
}

// GetModelName returns a fixed identifier for the mock.
func (m *MockClient) GetModelName() string {
	return "mock"
}

package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MockAdapter drives the server handler directly, standing in for a
// real transport in tests.
type MockAdapter struct {
	mu       sync.Mutex
	started  bool
	handler  Handler
	requests chan mockRequest
}

type mockRequest struct {
	tool  string
	args  map[string]any
	reply chan mockResponse
}

type mockResponse struct {
	result any
	err    error
}

func NewMockAdapter() *MockAdapter {
	return &MockAdapter{requests: make(chan mockRequest)}
}

func (m *MockAdapter) Start(ctx context.Context, handler Handler) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("mock adapter already started")
	}
	m.started = true
	m.handler = handler
	m.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-m.requests:
			result, err := m.handler(ctx, req.tool, req.args)
			req.reply <- mockResponse{result: result, err: err}
		}
	}
}

func (m *MockAdapter) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

// Call submits a tool invocation and waits for the handler's answer.
func (m *MockAdapter) Call(tool string, args map[string]any) (any, error) {
	reply := make(chan mockResponse)
	m.requests <- mockRequest{tool: tool, args: args, reply: reply}
	resp := <-reply
	return resp.result, resp.err
}

// CallJSON round-trips args through JSON first, matching what a wire
// client would deliver.
func (m *MockAdapter) CallJSON(tool string, args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}
	return m.Call(tool, decoded)
}

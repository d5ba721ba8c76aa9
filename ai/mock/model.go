package mock

import (
	"context"
	"sync"

	"github.com/repforge/wodsearch/ai"
)

// MockModelCaller is a scripted test double for ai.ModelCaller.
// Responses are returned in the order they were scripted; when the script
// runs out the last response repeats. Every request is captured for
// assertions.
type MockModelCaller struct {
	// CallFunc is called by Call if set, bypassing the script.
	CallFunc func(ctx context.Context, req *ai.ModelRequest) (*ai.ModelResponse, error)

	mu        sync.Mutex
	script    []scriptedReply
	requests  []*ai.ModelRequest
	callCount int
}

type scriptedReply struct {
	response *ai.ModelResponse
	err      error
}

// NewMockModelCaller creates a mock model caller with an empty script.
// An unscripted caller answers every call with empty assistant text.
// Returns concrete type to allow test assertions.
func NewMockModelCaller() *MockModelCaller {
	return &MockModelCaller{}
}

// EnqueueResponse appends a reply to the script.
func (m *MockModelCaller) EnqueueResponse(resp *ai.ModelResponse) *MockModelCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedReply{response: resp})
	return m
}

// EnqueueText appends a plain assistant-text reply to the script.
func (m *MockModelCaller) EnqueueText(text string) *MockModelCaller {
	return m.EnqueueResponse(&ai.ModelResponse{Content: text})
}

// EnqueueToolCall appends a reply requesting a single tool invocation.
func (m *MockModelCaller) EnqueueToolCall(id, name, arguments string) *MockModelCaller {
	return m.EnqueueResponse(&ai.ModelResponse{
		ToolCalls: []ai.ToolCall{{ID: id, Name: name, Arguments: arguments}},
	})
}

// EnqueueError appends a failing reply to the script.
func (m *MockModelCaller) EnqueueError(err error) *MockModelCaller {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scriptedReply{err: err})
	return m
}

// Call returns the next scripted reply and records the request.
func (m *MockModelCaller) Call(ctx context.Context, req *ai.ModelRequest) (*ai.ModelResponse, error) {
	if m.CallFunc != nil {
		m.mu.Lock()
		m.callCount++
		m.requests = append(m.requests, req)
		m.mu.Unlock()
		return m.CallFunc(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	idx := m.callCount
	m.callCount++

	if len(m.script) == 0 {
		return &ai.ModelResponse{}, nil
	}
	if idx >= len(m.script) {
		idx = len(m.script) - 1
	}
	reply := m.script[idx]
	if reply.err != nil {
		return nil, reply.err
	}
	return reply.response, nil
}

// CallCount returns the number of times Call was invoked.
func (m *MockModelCaller) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Requests returns the captured requests in call order.
func (m *MockModelCaller) Requests() []*ai.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*ai.ModelRequest(nil), m.requests...)
}

// Reset clears the script, captured requests, and call count.
func (m *MockModelCaller) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = nil
	m.requests = nil
	m.callCount = 0
	m.CallFunc = nil
}

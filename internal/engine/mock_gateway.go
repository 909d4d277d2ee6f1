package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/scribe/internal/model"
)

// ErrNoScriptedReply is returned by MockGateway when its script runs out.
var ErrNoScriptedReply = errors.New("mock gateway: no scripted reply")

// MockGateway is a test implementation of llm.Gateway that replays scripted replies in order.
type MockGateway struct {
	replies  []MockReply
	requests []model.ExtractionRequest
	mu       sync.Mutex
}

// MockReply is one scripted gateway answer.
type MockReply struct {
	Err    error
	Result model.ExtractionResult
}

// NewMockGateway creates a gateway that answers with replies in order.
func NewMockGateway(replies ...MockReply) *MockGateway {
	return &MockGateway{replies: replies}
}

// Push appends more scripted replies.
func (m *MockGateway) Push(replies ...MockReply) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, replies...)
}

// Extract records the request and returns the next scripted reply.
func (m *MockGateway) Extract(_ context.Context, req model.ExtractionRequest) (model.ExtractionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if len(m.replies) == 0 {
		return model.ExtractionResult{}, ErrNoScriptedReply
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	next.Result.Data = next.Result.Data.Normalize()
	return next.Result, next.Err
}

// Requests returns every request received so far.
func (m *MockGateway) Requests() []model.ExtractionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ExtractionRequest{}, m.requests...)
}

// Data is a shorthand for a scripted reply that extracted records.
func Data(answer string, data model.Extraction) MockReply {
	return MockReply{Result: model.ExtractionResult{Answer: answer, Data: data}}
}

// Clarify is a shorthand for a scripted clarifying question.
func Clarify(question string, options ...string) MockReply {
	return MockReply{Result: model.ExtractionResult{
		Answer:               question,
		ClarificationNeeded:  true,
		ClarificationOptions: options,
	}}
}

// Fail is a shorthand for a scripted gateway error.
func Fail(err error) MockReply {
	return MockReply{Err: err}
}

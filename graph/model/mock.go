package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests.
//
// Responses are returned in order, one per Chat call; when they run out the
// last response repeats. Errors can be injected per call via Errs (indexed by
// call number, nil entries succeed) or for every call via Err. All calls are
// recorded for assertion.
//
//	mock := &MockChatModel{
//	    Responses: []ChatOut{{Text: `{"content_types":["movie"]}`}},
//	    Errs:      []error{nil, errors.New("boom")}, // second call fails
//	}
//
// MockChatModel is safe for concurrent use.
type MockChatModel struct {
	// Responses is the scripted sequence of completions.
	Responses []ChatOut

	// Errs injects an error for the i-th call. Takes precedence over Err.
	Errs []error

	// Err, if set, fails every call not covered by Errs.
	Err error

	// Calls records every Chat invocation in order.
	Calls []MockChatCall

	mu        sync.Mutex
	callIndex int
}

// MockChatCall records one Chat invocation.
type MockChatCall struct {
	Messages []Message
}

// Chat implements ChatModel.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if ctx.Err() != nil {
		return ChatOut{}, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	call := m.callIndex
	m.callIndex++
	m.Calls = append(m.Calls, MockChatCall{Messages: messages})

	if call < len(m.Errs) && m.Errs[call] != nil {
		return ChatOut{}, m.Errs[call]
	}
	if m.Err != nil {
		return ChatOut{}, m.Err
	}

	if len(m.Responses) == 0 {
		return ChatOut{}, nil
	}

	idx := call
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}

// Reset clears call history and rewinds the response script.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.callIndex = 0
}

// CallCount returns how many times Chat has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

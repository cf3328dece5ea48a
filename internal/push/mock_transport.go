// ABOUTME: In-memory Transport for tests: records requests, answers through a responder,
// ABOUTME: and lets tests inject notifications and lifecycle transitions.

package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// RecordedRequest is one request seen by MockTransport.
type RecordedRequest struct {
	Op   string
	Body json.RawMessage
}

// MockTransport implements Transport without a network.
type MockTransport struct {
	// Responder produces the response body for a request. Nil answers every request with {}.
	Responder func(op string, body json.RawMessage) (json.RawMessage, error)
	// ConnectErr, when set, makes Connect fail.
	ConnectErr error

	mu            sync.Mutex
	requests      []RecordedRequest
	connected     bool
	closed        bool
	closeCalls    int
	notifications chan Frame
	lifecycle     chan LifecycleEvent
}

// NewMockTransport creates an unconnected mock.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		notifications: make(chan Frame, notificationBuffer),
		lifecycle:     make(chan LifecycleEvent, lifecycleBuffer),
	}
}

func (m *MockTransport) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.ConnectErr != nil {
		m.lifecycle <- LifecycleEvent{Kind: LifecycleError, Err: m.ConnectErr}
		return m.ConnectErr
	}
	m.connected = true
	m.lifecycle <- LifecycleEvent{Kind: LifecycleConnected}
	return nil
}

func (m *MockTransport) Request(ctx context.Context, op string, body, out any) error {
	raw, err := marshalBody(body)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if !m.connected {
		m.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	m.requests = append(m.requests, RecordedRequest{Op: op, Body: raw})
	responder := m.Responder
	m.mu.Unlock()

	resp := json.RawMessage(`{}`)
	if responder != nil {
		if resp, err = responder(op, raw); err != nil {
			return err
		}
	}
	if out != nil && len(resp) > 0 {
		return json.Unmarshal(resp, out)
	}
	return nil
}

func (m *MockTransport) Notifications() <-chan Frame { return m.notifications }

func (m *MockTransport) Lifecycle() <-chan LifecycleEvent { return m.lifecycle }

// Close marks the mock closed and emits one closed event.
func (m *MockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	if m.closed {
		return nil
	}
	m.closed = true
	if m.connected {
		m.connected = false
		m.lifecycle <- LifecycleEvent{Kind: LifecycleClosed}
	}
	return nil
}

// Notify injects a notification frame with body encoded as JSON.
func (m *MockTransport) Notify(notificationType string, body any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	m.notifications <- Frame{Kind: KindNotification, Type: notificationType, Body: raw}
	return nil
}

// Drop simulates the server closing the connection.
func (m *MockTransport) Drop(cause error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	if cause != nil {
		m.lifecycle <- LifecycleEvent{Kind: LifecycleError, Err: cause}
	}
	m.lifecycle <- LifecycleEvent{Kind: LifecycleClosed}
}

// EmitClosed injects a closed event while still accepting requests.
func (m *MockTransport) EmitClosed() {
	m.lifecycle <- LifecycleEvent{Kind: LifecycleClosed}
}

// EmitError injects an error event without changing connection state.
func (m *MockTransport) EmitError(err error) {
	m.lifecycle <- LifecycleEvent{Kind: LifecycleError, Err: err}
}

// Requests returns a copy of every recorded request.
func (m *MockTransport) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RequestsFor returns the recorded requests for one operation.
func (m *MockTransport) RequestsFor(op string) []RecordedRequest {
	var out []RecordedRequest
	for _, r := range m.Requests() {
		if r.Op == op {
			out = append(out, r)
		}
	}
	return out
}

// CloseCalls reports how many times Close was invoked.
func (m *MockTransport) CloseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCalls
}

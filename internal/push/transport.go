// ABOUTME: WebSocket transport for the push protocol: request/response correlation by id,
// ABOUTME: a notification stream, and locally synthesized lifecycle events.

package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrNotConnected is returned by requests issued while no connection is open.
	ErrNotConnected = errors.New("push transport not connected")
	// ErrClosed is returned once the transport has been closed.
	ErrClosed = errors.New("push transport closed")
	// ErrRequestFailed wraps responses carrying a failure code.
	ErrRequestFailed = errors.New("push request failed")
)

const (
	defaultRequestTimeout = 10 * time.Second
	writeWait             = 10 * time.Second
	notificationBuffer    = 256
	lifecycleBuffer       = 16
)

// LifecycleKind names a connection lifecycle transition.
type LifecycleKind string

const (
	LifecycleConnected LifecycleKind = "connected"
	LifecycleClosed    LifecycleKind = "closed"
	LifecycleError     LifecycleKind = "error"
)

// LifecycleEvent is emitted by the transport itself, never received from the wire.
type LifecycleEvent struct {
	Kind LifecycleKind
	Err  error
}

// Transport is the connection contract the agent state machine drives.
type Transport interface {
	Connect(ctx context.Context) error
	Request(ctx context.Context, op string, body, out any) error
	Notifications() <-chan Frame
	Lifecycle() <-chan LifecycleEvent
	Close() error
}

// AccountPlaceholder in WSConfig.URL is replaced by the account id when dialing.
const AccountPlaceholder = "{account_id}"

// WSConfig configures a WSTransport.
type WSConfig struct {
	URL            string
	AccountID      string
	Token          string
	RequestTimeout time.Duration
}

// DialURL returns URL with every AccountPlaceholder replaced by the escaped account id.
func (c WSConfig) DialURL() string {
	return strings.ReplaceAll(c.URL, AccountPlaceholder, url.PathEscape(c.AccountID))
}

// WSTransport is a Transport over a single gorilla/websocket connection.
type WSTransport struct {
	cfg    WSConfig
	dialer *websocket.Dialer
	logger *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	closed    bool
	pending   map[string]chan Frame

	writeMu sync.Mutex

	notifications chan Frame
	lifecycle     chan LifecycleEvent
	done          chan struct{}
	closeOnce     sync.Once
}

// NewWSTransport creates an unconnected transport.
func NewWSTransport(cfg WSConfig, logger *slog.Logger) *WSTransport {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	return &WSTransport{
		cfg:           cfg,
		dialer:        websocket.DefaultDialer,
		logger:        logger.With("component", "push-transport"),
		pending:       make(map[string]chan Frame),
		notifications: make(chan Frame, notificationBuffer),
		lifecycle:     make(chan LifecycleEvent, lifecycleBuffer),
		done:          make(chan struct{}),
	}
}

// Notifications returns the stream of inbound notification frames.
func (t *WSTransport) Notifications() <-chan Frame { return t.notifications }

// Lifecycle returns the stream of connection lifecycle events.
func (t *WSTransport) Lifecycle() <-chan LifecycleEvent { return t.lifecycle }

// Connected reports whether a connection is currently open.
func (t *WSTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Connect dials the push endpoint and starts the read loop.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	header := http.Header{}
	if t.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+t.cfg.Token)
	}

	dialURL := t.cfg.DialURL()
	conn, resp, err := t.dialer.DialContext(ctx, dialURL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		err = fmt.Errorf("dial %s: %w", dialURL, err)
		t.emit(LifecycleEvent{Kind: LifecycleError, Err: err})
		return err
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	t.conn = conn
	t.connected = true
	t.mu.Unlock()

	t.logger.Info("push connection open", "url", dialURL)
	t.emit(LifecycleEvent{Kind: LifecycleConnected})

	go t.readLoop(conn)
	return nil
}

// Request sends op with body and waits for the correlated response. A nil out discards
// the response body. Responses with code >= 400 fail with ErrRequestFailed.
func (t *WSTransport) Request(ctx context.Context, op string, body, out any) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if !t.connected {
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", op, ErrNotConnected)
	}
	conn := t.conn
	id := uuid.NewString()
	ch := make(chan Frame, 1)
	t.pending[id] = ch
	t.mu.Unlock()

	defer t.forget(id)

	raw, err := marshalBody(body)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}
	frame, err := json.Marshal(Frame{Kind: KindRequest, ID: id, Type: op, Body: raw})
	if err != nil {
		return fmt.Errorf("%s: encode frame: %w", op, err)
	}

	if err := t.write(conn, frame); err != nil {
		return fmt.Errorf("%s: write: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.cfg.RequestTimeout)
	defer cancel()

	select {
	case resp, ok := <-ch:
		if !ok {
			return fmt.Errorf("%s: %w", op, ErrNotConnected)
		}
		if resp.Code >= 400 {
			return fmt.Errorf("%w: %s returned %d: %s", ErrRequestFailed, op, resp.Code, string(resp.Body))
		}
		if out != nil && len(resp.Body) > 0 {
			if err := json.Unmarshal(resp.Body, out); err != nil {
				return fmt.Errorf("%s: decode response: %w", op, err)
			}
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}

// Close shuts the connection down. It is safe to call more than once.
func (t *WSTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		conn := t.conn
		t.mu.Unlock()

		close(t.done)

		if conn == nil {
			return
		}
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		t.writeMu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		t.writeMu.Unlock()
		err = conn.Close()
	})
	return err
}

func (t *WSTransport) write(conn *websocket.Conn, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) forget(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending, id)
}

func (t *WSTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.disconnected(conn, err)
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			t.logger.Warn("dropping undecodable frame", "error", err)
			continue
		}

		switch frame.Kind {
		case KindResponse:
			t.resolve(frame)
		case KindNotification:
			select {
			case t.notifications <- frame:
			case <-t.done:
			}
		default:
			t.logger.Warn("dropping frame of unknown kind", "kind", frame.Kind, "type", frame.Type)
		}
	}
}

func (t *WSTransport) resolve(frame Frame) {
	t.mu.Lock()
	ch, ok := t.pending[frame.ReqID]
	if ok {
		delete(t.pending, frame.ReqID)
	}
	t.mu.Unlock()

	if !ok {
		t.logger.Warn("received response for unknown request", "request_id", frame.ReqID)
		return
	}
	ch <- frame
}

// disconnected fails every pending request and reports the transition.
func (t *WSTransport) disconnected(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	t.connected = false
	closing := t.closed
	pending := t.pending
	t.pending = make(map[string]chan Frame)
	t.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	conn.Close()

	if !closing && !websocket.IsCloseError(cause, websocket.CloseNormalClosure) {
		t.logger.Warn("push connection lost", "error", cause)
		t.emit(LifecycleEvent{Kind: LifecycleError, Err: cause})
	}
	t.logger.Info("push connection closed")
	t.emit(LifecycleEvent{Kind: LifecycleClosed})
}

func (t *WSTransport) emit(ev LifecycleEvent) {
	select {
	case t.lifecycle <- ev:
	default:
		t.logger.Warn("lifecycle channel full, dropping event", "kind", ev.Kind)
	}
}

func marshalBody(body any) (json.RawMessage, error) {
	if body == nil {
		return json.RawMessage(`{}`), nil
	}
	if raw, ok := body.(json.RawMessage); ok {
		return raw, nil
	}
	return json.Marshal(body)
}

// ABOUTME: Push agent connection state machine: connect, subscribe, heartbeat, ring accept,
// ABOUTME: and per-category notification queues feeding the conversation registry.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/2389/botbridge/internal/metrics"
	"github.com/2389/botbridge/internal/push"
)

// State is the lifecycle state of the push connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	defaultHeartbeatInterval = 30 * time.Second
	categoryQueueSize        = 64
)

// Handler consumes classified notifications. The registry implements it.
type Handler interface {
	HandleConversationChange(ctx context.Context, n push.ConversationChangeNotification)
	HandleMessagingEvent(ctx context.Context, n push.MessagingEventNotification)
}

// Config tunes an Agent.
type Config struct {
	HeartbeatInterval time.Duration
}

// Agent owns the single push connection of this process.
type Agent struct {
	transport push.Transport
	client    *push.Client
	handler   Handler
	cfg       Config
	metrics   *metrics.Collectors
	logger    *slog.Logger

	mu            sync.Mutex
	state         State
	heartbeatStop chan struct{}
	heartbeats    int

	routing       chan push.Frame
	conversations chan push.Frame
	messaging     chan push.Frame

	closeOnce sync.Once
}

// New creates an Agent in the Disconnected state.
func New(transport push.Transport, client *push.Client, handler Handler, cfg Config, m *metrics.Collectors, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	return &Agent{
		transport:     transport,
		client:        client,
		handler:       handler,
		cfg:           cfg,
		metrics:       m,
		logger:        logger.With("component", "push-agent", "agent_id", client.AgentID()),
		routing:       make(chan push.Frame, categoryQueueSize),
		conversations: make(chan push.Frame, categoryQueueSize),
		messaging:     make(chan push.Frame, categoryQueueSize),
	}
}

// State returns the current connection state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) setState(s State) {
	a.mu.Lock()
	prev := a.state
	a.state = s
	a.mu.Unlock()
	if prev != s {
		a.logger.Info("push agent state changed", "from", prev.String(), "to", s.String())
	}
	a.metrics.SetPushConnected(s == StateConnected)
}

// Run connects and processes lifecycle events and notifications until the connection
// closes or ctx is cancelled. It does not reconnect.
func (a *Agent) Run(ctx context.Context) error {
	a.mu.Lock()
	if a.state != StateDisconnected {
		a.mu.Unlock()
		return fmt.Errorf("agent run from state %s", a.state)
	}
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	var workers sync.WaitGroup
	defer func() {
		cancel()
		workers.Wait()
	}()

	for _, q := range []chan push.Frame{a.routing, a.conversations, a.messaging} {
		workers.Add(1)
		go func(q chan push.Frame) {
			defer workers.Done()
			a.consume(ctx, q)
		}(q)
	}

	a.setState(StateConnecting)
	if err := a.transport.Connect(ctx); err != nil {
		a.setState(StateDisconnected)
		return fmt.Errorf("connect push transport: %w", err)
	}

	lifecycle := a.transport.Lifecycle()
	notifications := a.transport.Notifications()
	for {
		select {
		case ev := <-lifecycle:
			if done := a.handleLifecycle(ctx, ev); done {
				return nil
			}
		case f := <-notifications:
			a.route(ctx, f)
		case <-ctx.Done():
			a.Close()
			return ctx.Err()
		}
	}
}

// Close stops the heartbeat and closes the transport. It is safe to call more than once.
func (a *Agent) Close() error {
	var err error
	a.closeOnce.Do(func() {
		a.setState(StateClosed)
		a.stopHeartbeat()
		err = a.transport.Close()
	})
	return err
}

// handleLifecycle applies one lifecycle event and reports whether Run should return.
func (a *Agent) handleLifecycle(ctx context.Context, ev push.LifecycleEvent) bool {
	switch ev.Kind {
	case push.LifecycleConnected:
		a.setState(StateConnected)
		go a.onConnected(ctx)
	case push.LifecycleError:
		a.logger.Error("push transport error", "error", ev.Err)
	case push.LifecycleClosed:
		a.setState(StateClosed)
		a.stopHeartbeat()
		a.logger.Warn("push connection closed; reconnect is left to the supervisor")
		return true
	}
	return false
}

// onConnected sets presence, subscribes, and starts the heartbeat.
func (a *Agent) onConnected(ctx context.Context) {
	if err := a.client.SetAgentState(ctx, push.AvailabilityOnline); err != nil {
		a.logger.Error("set agent state failed", "error", err)
	}
	if err := a.client.SubscribeConversations(ctx); err != nil {
		a.logger.Error("subscribe to conversations failed", "error", err)
	}
	if err := a.client.SubscribeRoutingTasks(ctx); err != nil {
		a.logger.Error("subscribe to routing tasks failed", "error", err)
	}
	a.startHeartbeat(ctx)
}

// route places a notification on its category queue.
func (a *Agent) route(ctx context.Context, f push.Frame) {
	a.metrics.Notification(f.Type)

	var q chan push.Frame
	switch f.Type {
	case push.NotifyRoutingTask:
		q = a.routing
	case push.NotifyConversationChange:
		q = a.conversations
	case push.NotifyMessagingEvent:
		q = a.messaging
	default:
		a.logger.Debug("ignoring notification", "type", f.Type)
		return
	}
	select {
	case q <- f:
	case <-ctx.Done():
	}
}

func (a *Agent) consume(ctx context.Context, q chan push.Frame) {
	for {
		select {
		case f := <-q:
			a.handle(ctx, f)
		case <-ctx.Done():
			return
		}
	}
}

func (a *Agent) handle(ctx context.Context, f push.Frame) {
	switch f.Type {
	case push.NotifyRoutingTask:
		var n push.RoutingTaskNotification
		if err := json.Unmarshal(f.Body, &n); err != nil {
			a.logger.Warn("undecodable routing notification", "error", err)
			return
		}
		a.acceptRings(ctx, n)
	case push.NotifyConversationChange:
		var n push.ConversationChangeNotification
		if err := json.Unmarshal(f.Body, &n); err != nil {
			a.logger.Warn("undecodable conversation notification", "error", err)
			return
		}
		a.handler.HandleConversationChange(ctx, n)
	case push.NotifyMessagingEvent:
		var n push.MessagingEventNotification
		if err := json.Unmarshal(f.Body, &n); err != nil {
			a.logger.Warn("undecodable messaging notification", "error", err)
			return
		}
		a.handler.HandleMessagingEvent(ctx, n)
	}
}

// acceptRings accepts every waiting routing offer.
func (a *Agent) acceptRings(ctx context.Context, n push.RoutingTaskNotification) {
	for _, change := range n.Changes {
		if change.Type != push.ChangeUpsert {
			continue
		}
		for _, ring := range change.Result.RingsDetails {
			if ring.RingState != push.RingWaiting {
				continue
			}
			if err := a.client.AcceptRing(ctx, ring.RingID); err != nil {
				a.logger.Warn("accept ring failed", "ring_id", ring.RingID, "error", err)
				continue
			}
			a.metrics.RingAccepted()
			a.logger.Info("ring accepted", "ring_id", ring.RingID)
		}
	}
}

// startHeartbeat starts the clock ping unless one is already running.
func (a *Agent) startHeartbeat(ctx context.Context) {
	a.mu.Lock()
	if a.heartbeatStop != nil || a.state != StateConnected {
		a.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	a.heartbeatStop = stop
	a.heartbeats++
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(a.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := a.client.Clock(ctx); err != nil {
					a.logger.Warn("heartbeat failed", "error", err)
				}
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// stopHeartbeat stops the running heartbeat, if any.
func (a *Agent) stopHeartbeat() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.heartbeatStop == nil {
		return
	}
	close(a.heartbeatStop)
	a.heartbeatStop = nil
}

// heartbeatStarts reports how many heartbeats have been started.
func (a *Agent) heartbeatStarts() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.heartbeats
}

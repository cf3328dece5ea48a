// ABOUTME: Conversation registry: open conversation set, pending inbound buffer, and the
// ABOUTME: acknowledge/resolve/emit pipeline that turns push notifications into Activities.

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/2389/botbridge/internal/activity"
	"github.com/2389/botbridge/internal/dedupe"
	"github.com/2389/botbridge/internal/metrics"
	"github.com/2389/botbridge/internal/push"
	"github.com/2389/botbridge/internal/translate"
)

// Ordering selects the dispatch order of a batch's pending entries.
type Ordering string

const (
	OrderInsertion Ordering = "insertion"
	OrderSequence  Ordering = "sequence"
)

const (
	defaultDeliveredTTL   = 5 * time.Minute
	deliveredCacheSize    = 10000
	greetingMessagePrefix = "Just joined to conversation with "
)

// Backend is the subset of push operations the registry performs.
type Backend interface {
	Publish(ctx context.Context, conversationID string, ev push.Event) error
	UserProfile(ctx context.Context, userID string) ([]push.Profile, error)
	SubscribeMessages(ctx context.Context, conversationID string) error
}

// Listener receives every reconciled inbound message.
type Listener func(ctx context.Context, act *activity.Activity)

// Config tunes a Registry.
type Config struct {
	// AgentID identifies events originated by this agent.
	AgentID string
	// Ordering defaults to OrderInsertion.
	Ordering Ordering
	// Greeting publishes a join message when a conversation opens.
	Greeting bool
	// DeliveredTTL is how long a handed-off key is remembered to suppress redelivery.
	DeliveredTTL time.Duration
	// Runner executes background work. Nil runs each task on its own goroutine.
	Runner func(func())
}

// Key identifies one inbound message.
type Key struct {
	ConversationID string
	Sequence       int
}

func (k Key) String() string { return fmt.Sprintf("%s-%d", k.ConversationID, k.Sequence) }

// OpenConversation is a conversation currently assigned to this agent.
type OpenConversation struct {
	ID           string
	Participants []push.Participant
	OpenedAt     time.Time
}

type pendingEntry struct {
	key        Key
	delivery   push.Delivery
	order      uint64
	dispatched bool
}

// Registry owns the open conversation set and the pending inbound buffer.
type Registry struct {
	cfg       Config
	backend   Backend
	listener  Listener
	delivered *dedupe.Cache[Key]
	metrics   *metrics.Collectors
	logger    *slog.Logger

	mu        sync.Mutex
	open      map[string]*OpenConversation
	pending   map[Key]*pendingEntry
	nextOrder uint64
}

// New creates a Registry. Call Close to release the delivered-key cache.
func New(cfg Config, backend Backend, listener Listener, m *metrics.Collectors, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Ordering == "" {
		cfg.Ordering = OrderInsertion
	}
	if cfg.DeliveredTTL <= 0 {
		cfg.DeliveredTTL = defaultDeliveredTTL
	}
	if cfg.Runner == nil {
		cfg.Runner = func(f func()) { go f() }
	}
	return &Registry{
		cfg:       cfg,
		backend:   backend,
		listener:  listener,
		delivered: dedupe.New[Key](cfg.DeliveredTTL, deliveredCacheSize),
		metrics:   m,
		logger:    logger.With("component", "registry"),
		open:      make(map[string]*OpenConversation),
		pending:   make(map[Key]*pendingEntry),
	}
}

// Close releases background resources.
func (r *Registry) Close() {
	r.delivered.Close()
}

// IsOpen reports whether a conversation is currently open.
func (r *Registry) IsOpen(conversationID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[conversationID]
	return ok
}

// Conversation returns a copy of an open conversation.
func (r *Registry) Conversation(conversationID string) (OpenConversation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.open[conversationID]
	if !ok {
		return OpenConversation{}, false
	}
	return *c, true
}

// OpenCount returns the number of open conversations.
func (r *Registry) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}

// PendingCount returns the number of buffered entries, dispatched or not.
func (r *Registry) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// HandleConversationChange applies a batch of conversation upserts and deletes.
func (r *Registry) HandleConversationChange(ctx context.Context, n push.ConversationChangeNotification) {
	var opened []OpenConversation

	r.mu.Lock()
	for _, change := range n.Changes {
		id := change.ConversationID()
		if id == "" {
			continue
		}
		switch change.Type {
		case push.ChangeUpsert:
			if _, ok := r.open[id]; ok {
				continue
			}
			conv := &OpenConversation{ID: id, Participants: change.Participants(), OpenedAt: time.Now()}
			r.open[id] = conv
			opened = append(opened, *conv)
		case push.ChangeDelete:
			r.removeLocked(id)
		default:
			r.logger.Debug("ignoring conversation change", "type", change.Type, "conversation_id", id)
		}
	}
	r.metrics.SetOpenConversations(len(r.open))
	r.mu.Unlock()

	for _, conv := range opened {
		r.logger.Info("conversation opened", "conversation_id", conv.ID)
		r.cfg.Runner(func() { r.join(ctx, conv) })
	}
}

// removeLocked must be called with mu held.
func (r *Registry) removeLocked(id string) {
	if _, ok := r.open[id]; !ok {
		return
	}
	delete(r.open, id)
	dropped := 0
	for key := range r.pending {
		if key.ConversationID == id {
			delete(r.pending, key)
			dropped++
		}
	}
	for i := 0; i < dropped; i++ {
		r.metrics.Suppressed(metrics.SuppressedClosed)
	}
	forgotten := r.delivered.ForgetFunc(func(k Key) bool { return k.ConversationID == id })
	r.logger.Info("conversation closed", "conversation_id", id, "dropped_pending", dropped, "forgotten_delivered", forgotten)
}

// join subscribes to the conversation's messages and sends the optional greeting.
func (r *Registry) join(ctx context.Context, conv OpenConversation) {
	if err := r.backend.SubscribeMessages(ctx, conv.ID); err != nil {
		r.logger.Warn("subscribe to messaging events failed", "conversation_id", conv.ID, "error", err)
	}
	if !r.cfg.Greeting {
		return
	}

	var profiles []push.Profile
	if consumerID := push.ConsumerID(conv.Participants); consumerID != "" {
		var err error
		profiles, err = r.backend.UserProfile(ctx, consumerID)
		if err != nil {
			r.logger.Warn("profile lookup for greeting failed", "conversation_id", conv.ID, "error", err)
		}
	} else {
		r.logger.Debug("no consumer in participants, greeting without profile", "conversation_id", conv.ID)
	}
	raw, err := json.Marshal(profiles)
	if err != nil {
		raw = []byte("null")
	}
	ev := push.TextEvent(greetingMessagePrefix + string(raw))
	err = r.backend.Publish(ctx, conv.ID, ev)
	r.metrics.Published(ev.Type, err)
	if err != nil {
		r.logger.Warn("greeting publish failed", "conversation_id", conv.ID, "error", err)
	}
}

// HandleMessagingEvent applies one batch of message changes and dispatches what remains
// pending afterwards.
func (r *Registry) HandleMessagingEvent(ctx context.Context, n push.MessagingEventNotification) {
	r.mu.Lock()
	for _, change := range n.Changes {
		convID := change.DialogID
		if convID == "" {
			convID = n.DialogID
		}
		if _, ok := r.open[convID]; !ok {
			continue
		}

		switch change.Event.Type {
		case push.EventContent:
			if change.OriginatorID == r.cfg.AgentID {
				continue
			}
			r.bufferLocked(push.Delivery{
				ConversationID: convID,
				Sequence:       change.Sequence,
				Message:        change.Event.Message,
				SenderID:       change.OriginatorID,
			})
		case push.EventAcceptStatus:
			if change.OriginatorID != r.cfg.AgentID {
				continue
			}
			for _, seq := range change.Event.SequenceList {
				key := Key{ConversationID: convID, Sequence: seq}
				if e, ok := r.pending[key]; ok && !e.dispatched {
					delete(r.pending, key)
					r.metrics.Suppressed(metrics.SuppressedAcknowledged)
				}
			}
		}
	}
	batch := r.takeLocked()
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	r.cfg.Runner(func() {
		for _, e := range batch {
			r.dispatch(ctx, e)
		}
	})
}

// bufferLocked must be called with mu held.
func (r *Registry) bufferLocked(d push.Delivery) {
	key := Key{ConversationID: d.ConversationID, Sequence: d.Sequence}
	if r.delivered.Check(key) {
		r.metrics.Suppressed(metrics.SuppressedDuplicate)
		return
	}
	if e, ok := r.pending[key]; ok {
		if e.dispatched {
			r.metrics.Suppressed(metrics.SuppressedDuplicate)
			return
		}
		e.delivery = d
		return
	}
	r.nextOrder++
	r.pending[key] = &pendingEntry{key: key, delivery: d, order: r.nextOrder}
}

// takeLocked marks every undispatched entry dispatched and returns them in dispatch order.
func (r *Registry) takeLocked() []*pendingEntry {
	var batch []*pendingEntry
	for _, e := range r.pending {
		if !e.dispatched {
			e.dispatched = true
			batch = append(batch, e)
		}
	}
	if r.cfg.Ordering != OrderSequence {
		sort.Slice(batch, func(i, j int) bool { return batch[i].order < batch[j].order })
		return batch
	}

	// Conversations keep their first-arrival order; entries within one sort by sequence.
	first := make(map[string]uint64)
	for _, e := range batch {
		if o, ok := first[e.key.ConversationID]; !ok || e.order < o {
			first[e.key.ConversationID] = e.order
		}
	}
	sort.Slice(batch, func(i, j int) bool {
		a, b := batch[i], batch[j]
		if fa, fb := first[a.key.ConversationID], first[b.key.ConversationID]; fa != fb {
			return fa < fb
		}
		if a.key.Sequence != b.key.Sequence {
			return a.key.Sequence < b.key.Sequence
		}
		return a.order < b.order
	})
	return batch
}

// dispatch acknowledges, resolves and emits one entry.
func (r *Registry) dispatch(ctx context.Context, e *pendingEntry) {
	d := e.delivery

	receipt := push.ReadReceipt(d.Sequence)
	err := r.backend.Publish(ctx, d.ConversationID, receipt)
	r.metrics.Published(receipt.Type, err)
	if err != nil {
		r.logger.Warn("read receipt publish failed", "key", e.key.String(), "error", err)
	}

	customerID := ""
	profiles, err := r.backend.UserProfile(ctx, d.SenderID)
	if err != nil {
		r.logger.Warn("profile lookup failed, continuing without customer id", "key", e.key.String(), "error", err)
	} else {
		customerID = push.CustomerID(profiles)
	}

	if !r.complete(e) {
		r.logger.Debug("pending entry removed before emit", "key", e.key.String())
		return
	}

	r.metrics.Delivered()
	r.listener(ctx, translate.ToActivity(d, customerID))
}

// complete removes e from the buffer and records it as delivered. It reports false if e was
// removed while its dispatch was in flight.
func (r *Registry) complete(e *pendingEntry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.pending[e.key]; !ok || cur != e {
		return false
	}
	delete(r.pending, e.key)
	r.delivered.Mark(e.key)
	return true
}

// ABOUTME: Prometheus collectors for the turn endpoint and the push connection.
// ABOUTME: A nil *Collectors is valid and records nothing.

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reasons an inbound push message was not handed to conversational logic.
const (
	SuppressedAcknowledged = "acknowledged"
	SuppressedDuplicate    = "duplicate"
	SuppressedClosed       = "closed"
)

// Collectors groups every metric the bridge exports on its own registry.
type Collectors struct {
	registry *prometheus.Registry

	TurnRequests       *prometheus.CounterVec
	TurnDuration       prometheus.Histogram
	PushNotifications  *prometheus.CounterVec
	PushPublishes      *prometheus.CounterVec
	MessagesDelivered  prometheus.Counter
	MessagesSuppressed *prometheus.CounterVec
	RingsAccepted      prometheus.Counter
	OpenConversations  prometheus.Gauge
	PushConnected      prometheus.Gauge
}

// New registers all collectors, plus Go runtime and process collectors, on a fresh registry.
func New() *Collectors {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collectors{
		registry: reg,
		TurnRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "botbridge_turn_requests_total",
			Help: "Total number of turn-protocol requests",
		}, []string{"status"}),
		TurnDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "botbridge_turn_request_duration_seconds",
			Help:    "Turn-protocol request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		PushNotifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "botbridge_push_notifications_total",
			Help: "Push notifications received, by notification type",
		}, []string{"type"}),
		PushPublishes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "botbridge_push_publishes_total",
			Help: "Events published over the push connection, by event type and result",
		}, []string{"event", "result"}),
		MessagesDelivered: f.NewCounter(prometheus.CounterOpts{
			Name: "botbridge_push_messages_delivered_total",
			Help: "Inbound push messages handed to conversational logic",
		}),
		MessagesSuppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "botbridge_push_messages_suppressed_total",
			Help: "Inbound push messages dropped during reconciliation, by reason",
		}, []string{"reason"}),
		RingsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: "botbridge_push_rings_accepted_total",
			Help: "Routing offers accepted",
		}),
		OpenConversations: f.NewGauge(prometheus.GaugeOpts{
			Name: "botbridge_push_open_conversations",
			Help: "Conversations currently open for this agent",
		}),
		PushConnected: f.NewGauge(prometheus.GaugeOpts{
			Name: "botbridge_push_connected",
			Help: "1 while the push connection is open",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry { return c.registry }

// ObserveTurn records one turn request.
func (c *Collectors) ObserveTurn(status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.TurnRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	c.TurnDuration.Observe(elapsed.Seconds())
}

// Notification counts one push notification.
func (c *Collectors) Notification(notificationType string) {
	if c == nil {
		return
	}
	c.PushNotifications.WithLabelValues(notificationType).Inc()
}

// Published counts one publish attempt.
func (c *Collectors) Published(eventType string, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	c.PushPublishes.WithLabelValues(eventType, result).Inc()
}

// Delivered counts one message handed to conversational logic.
func (c *Collectors) Delivered() {
	if c == nil {
		return
	}
	c.MessagesDelivered.Inc()
}

// Suppressed counts one message dropped during reconciliation.
func (c *Collectors) Suppressed(reason string) {
	if c == nil {
		return
	}
	c.MessagesSuppressed.WithLabelValues(reason).Inc()
}

// RingAccepted counts one accepted routing offer.
func (c *Collectors) RingAccepted() {
	if c == nil {
		return
	}
	c.RingsAccepted.Inc()
}

// SetOpenConversations records the size of the open conversation set.
func (c *Collectors) SetOpenConversations(n int) {
	if c == nil {
		return
	}
	c.OpenConversations.Set(float64(n))
}

// SetPushConnected records the push connection state.
func (c *Collectors) SetPushConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.PushConnected.Set(1)
		return
	}
	c.PushConnected.Set(0)
}

// Package gateway orchestrates the botbridge server components.
//
// # Overview
//
// The gateway package is the central coordinator of the botbridge server. It owns the
// conversation store, the bot, both protocol adapters, the push agent connection and the
// HTTP server.
//
// # Wiring
//
//	HTTP POST turn.path ──► auth.RequireBearer ──► adapter.TurnAdapter ─┐
//	                                                                    ├─► Pipeline ─► bot.Bot
//	push.Transport ─► agent.Agent ─► registry.Registry ─► PushAdapter ──┘
//
// Replies produced by the bot travel back through the adapter Set: turn replies in the
// HTTP response body, push replies as PublishEvent requests on the agent connection.
//
// # HTTP Endpoints
//
//	GET  /health      liveness, always 200
//	GET  /ready       200 when the store answers and the push connection (if enabled) is connected
//	GET  /metrics     Prometheus metrics (metrics.enabled)
//	POST turn.path    turn protocol activities (turn.enabled), default /api/messages
//
// # Lifecycle
//
// Run listens (plain TCP or a tsnet node when tailscale.enabled), starts the push agent and
// blocks until its context ends or a component fails. A closed push connection ends Run with
// ErrPushConnectionEnded; the gateway does not reconnect. Shutdown is bounded to five seconds.
package gateway

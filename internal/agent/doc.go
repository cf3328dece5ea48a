// Package agent holds this process's single push-protocol connection.
//
// # Overview
//
// An Agent drives a push.Transport through its lifecycle and feeds classified
// notifications to a Handler (the conversation registry):
//
//	Disconnected ──Run──► Connecting ──connected──► Connected ──closed──► Closed
//	     ▲                    │
//	     └──connect failure───┘
//
// # Connect Sequence
//
// On the connected lifecycle event the agent, in order:
//
//  1. sets its availability to ONLINE
//  2. subscribes to its open conversations
//  3. subscribes to routing tasks
//  4. starts the heartbeat (a GetClock request every HeartbeatInterval, default 30s)
//
// Failures in the sequence are logged; the connection stays up.
//
// # Notification Queues
//
// Notifications are routed by type into three bounded queues, one per category
// (routing, conversation, messaging), each drained by its own goroutine. Order is
// preserved within a category, never across categories. Unknown types are dropped.
//
// Routing notifications are handled here: every UPSERT ring in WAITING state is
// accepted. Conversation and messaging notifications go to the Handler.
//
// # Shutdown
//
// A closed lifecycle event stops the heartbeat and ends Run; there is no reconnect.
// Close is idempotent and closes the transport once.
package agent

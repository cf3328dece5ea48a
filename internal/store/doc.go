// Package store persists conversation state for the bot.
//
// The only state the bridge keeps across turns is a per-conversation turn counter, keyed by
// the protocol a conversation arrived on and its conversation id. Push-side reconciliation
// state is deliberately in memory only and never touches this package.
//
// Two implementations satisfy Store:
//
//   - SQLiteStore: modernc.org/sqlite, WAL mode, schema created on open. The path
//     ":memory:" opens a private in-memory database.
//   - MemoryStore: a map behind a mutex, for tests and for running without a database.
package store

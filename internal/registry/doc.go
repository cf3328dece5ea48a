// Package registry reconciles the push protocol's at-least-once notification stream into a
// clean stream of inbound messages.
//
// # Open conversations
//
// A conversation is tracked from the first upsert change that names it until a delete
// change removes it. Message notifications for conversations that are not open are ignored;
// the backend may deliver them before, or without, a subscription. Opening a conversation
// subscribes to its messages and, unless disabled, greets it with the consumer's profiles.
//
// # Pending buffer
//
// Consumer content events are buffered under their (conversation, sequence) key. An
// AcceptStatus event published by this agent removes the sequences it lists from the buffer,
// since another reader has already consumed them. After each batch the remaining entries are
// dispatched: each one is acknowledged with a read receipt, its sender is resolved to a
// customer id, and it is handed to the listener as an Activity. An entry that is removed
// while its dispatch is in flight, for example by a conversation delete, is not emitted.
//
// Delivered keys are remembered for DeliveredTTL so a redelivered event is suppressed. A
// conversation delete forgets its keys.
//
// # Ordering
//
// OrderInsertion dispatches entries in the order they entered the buffer. OrderSequence keeps
// conversations in first-arrival order and sorts each conversation's entries by sequence
// number. A batch is dispatched sequentially on one runner task; separate batches may
// dispatch concurrently, so neither policy orders across batches.
//
// # Concurrency
//
// All buffer and open-set mutations happen under one mutex. Network calls never run under
// it: greetings, subscriptions, receipts and profile lookups run on the configured runner.
package registry

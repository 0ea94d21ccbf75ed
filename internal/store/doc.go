// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// The package exposes a single Store interface — the contract the session
// and gateway layers require from a document store — and one implementation,
// SQLiteStore. The interface is deliberately narrow: create/update/delete of
// conversation documents, append-only message writes with store-assigned
// timestamps, and ordered reads backed by two indexes:
//
//   - conversations(owner_id, created_at DESC) for owner listings
//   - messages(conversation_id, created_at) for chronological logs
//
// # Data Models
//
//   - Conversation: owner-scoped message log container with a display title
//     and an archived flag (archived hides, never deletes)
//   - Message: one append-only log entry with a "user" or "bot" sender
//
// # Semantics
//
// Messages are never updated or reordered; within a conversation the read
// order is (created_at, rowid) ascending, so equal-timestamp appends stay in
// insertion order. Deleting a conversation deletes all its messages in the
// same transaction — no partially deleted state is ever observable.
// Conversation updates are last-writer-wins with no optimistic concurrency
// check. An append whose parent conversation has been deleted fails with
// ErrNotFound via the foreign key constraint.
package store

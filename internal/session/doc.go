// Package session implements the per-caller conversation session.
//
// A Manager owns one signed-in caller's state: the active conversation id,
// the locally materialized message log, and the pending-request gate. At
// most one send is in flight per session; concurrent sends are rejected
// with ErrBusy, never queued.
//
// # Send Round Trip
//
// Send persists the user message, classifies it by substring heuristic
// (weather / news / general), calls the matching service proxy capability,
// and persists the reply as a bot message. The first general exchange also
// derives the conversation's automatic title from the message text.
//
// # Snapshot Merge
//
// The local message log is replaced wholesale by each subscription
// snapshot for the active conversation. A local append becomes visible
// only once the subscription echoes it back; the manager never merges an
// optimistic append with a server snapshot.
//
// # Late Replies
//
// A proxy call that resolves after its conversation was deleted produces
// an orphan bot write. The store rejects it and the manager drops the
// reply with a log line; no error is surfaced.
package session

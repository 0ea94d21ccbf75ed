// Package conversation provides live-query subscriptions over the store.
//
// # Overview
//
// The package sits between the persistence layer and its consumers (session
// manager, SSE handlers), turning plain store writes into an event-driven
// snapshot feed. It is the gateway's equivalent of a document store's live
// query support.
//
// # Broadcaster
//
// Broadcaster is a generic in-memory fan-out: subscribers register for a key
// and receive values published to that key. Buffers are small and coalescing —
// when a subscriber lags, stale snapshots are evicted in favor of the latest,
// so publishers never block and subscribers always converge.
//
// # Watcher
//
// Watcher wraps a store.Store. Reads and writes delegate straight through;
// after every successful write it re-queries the affected result set and
// publishes the full snapshot:
//
//   - WatchMessages(ctx, conversationID): ordered message log snapshots
//   - WatchConversations(ctx, ownerID): newest-first conversation listings
//
// Subscribers always receive the complete current state, starting with an
// initial snapshot at subscribe time. Delivery is at-least-once; consumers
// replace their local cache wholesale rather than patching it incrementally.
package conversation

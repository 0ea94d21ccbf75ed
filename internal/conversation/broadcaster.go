// ABOUTME: In-memory fan-out broadcaster for live store snapshots
// ABOUTME: Publishes full query snapshots to all subscribers of a key with latest-wins coalescing

package conversation

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each subscriber. Snapshots
	// supersede each other, so a small buffer with coalescing is enough.
	subscriberBufferSize = 1
)

// Broadcaster provides in-memory pub/sub for live query snapshots. Subscribers
// register for a key (a conversation id or an owner id) and receive the full
// current result set on every change. Delivery is at-least-once: a subscriber
// may observe the same logical state twice and must replace, not merge.
type Broadcaster[T any] struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan T // key -> subID -> ch
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster[T any](logger *slog.Logger) *Broadcaster[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster[T]{
		subscribers: make(map[string]map[string]chan T),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a subscriber for snapshots on the given key. Returns a
// channel that receives snapshots and a subscription ID. The subscription is
// automatically cleaned up when ctx is cancelled.
func (b *Broadcaster[T]) Subscribe(ctx context.Context, key string) (<-chan T, string) {
	subID := uuid.New().String()
	ch := make(chan T, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[key]; !ok {
		b.subscribers[key] = make(map[string]chan T)
	}
	b.subscribers[key][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "key", key, "sub_id", subID)

	// Auto-cleanup on context cancellation
	go func() {
		<-ctx.Done()
		b.Unsubscribe(key, subID)
	}()

	return ch, subID
}

// Publish sends a snapshot to all subscribers of the given key. Never blocks
// the publisher: when a subscriber's buffer is full, the stale snapshot is
// evicted so the subscriber always converges on the latest state.
func (b *Broadcaster[T]) Publish(key string, snapshot T) {
	// Sends stay under the read lock: Unsubscribe and Close close channels
	// under the write lock, so this excludes a send on a closed channel.
	// offer never blocks, so holding the lock across sends is safe.
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers[key] {
		b.offer(ch, snapshot)
	}
}

// SendTo delivers a snapshot to a single subscription. Used for the initial
// snapshot a new subscriber must receive before any change arrives.
func (b *Broadcaster[T]) SendTo(key, subID string, snapshot T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ch, ok := b.subscribers[key][subID]
	if !ok {
		return
	}
	b.offer(ch, snapshot)
}

// offer performs a non-blocking coalescing send: if the buffer is full the
// oldest pending snapshot is dropped in favor of the new one.
func (b *Broadcaster[T]) offer(ch chan T, snapshot T) {
	select {
	case ch <- snapshot:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snapshot:
	default:
		// Subscriber raced us refilling the buffer; it already holds a
		// newer-or-equal snapshot, so dropping this one is safe.
	}
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster[T]) Unsubscribe(key, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[key]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	// Clean up empty key entries
	if len(subs) == 0 {
		delete(b.subscribers, key)
	}

	b.logger.Debug("subscriber removed", "key", key, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for key, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, key)
	}

	b.logger.Debug("broadcaster closed")
}

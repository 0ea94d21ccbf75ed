// ABOUTME: Watcher wraps a Store with live-query subscriptions
// ABOUTME: Every mutation republishes a fresh full snapshot to affected subscribers

package conversation

import (
	"context"
	"log/slog"
	"time"

	"github.com/vilora/vilora-gateway/internal/store"
)

// snapshotQueryTimeout bounds the store reads done on behalf of subscribers
// after a write completes.
const snapshotQueryTimeout = 5 * time.Second

// Watcher decorates a store.Store with live subscriptions. Writes are
// delegated to the underlying store; after each successful write the watcher
// re-queries the affected result sets and fans the full snapshots out to
// subscribers. Message snapshots are keyed by conversation id,
// conversation-list snapshots by owner id.
type Watcher struct {
	store    store.Store
	messages *Broadcaster[[]*store.Message]
	lists    *Broadcaster[[]*store.Conversation]
	logger   *slog.Logger
}

// NewWatcher creates a watcher over the given store. Pass nil logger for default.
func NewWatcher(s store.Store, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "watcher")
	return &Watcher{
		store:    s,
		messages: NewBroadcaster[[]*store.Message](logger),
		lists:    NewBroadcaster[[]*store.Conversation](logger),
		logger:   logger,
	}
}

// WatchMessages subscribes to the ordered message log of one conversation.
// The current snapshot is delivered immediately, then again after every
// change. The subscription ends when ctx is cancelled.
func (w *Watcher) WatchMessages(ctx context.Context, conversationID string) (<-chan []*store.Message, error) {
	ch, subID := w.messages.Subscribe(ctx, conversationID)

	initial, err := w.store.ListMessages(ctx, conversationID)
	if err != nil {
		w.messages.Unsubscribe(conversationID, subID)
		return nil, err
	}
	w.messages.SendTo(conversationID, subID, initial)

	return ch, nil
}

// WatchConversations subscribes to an owner's conversation listing, newest
// first and including archived entries (consumers filter for the default
// view). The current snapshot is delivered immediately.
func (w *Watcher) WatchConversations(ctx context.Context, ownerID string) (<-chan []*store.Conversation, error) {
	ch, subID := w.lists.Subscribe(ctx, ownerID)

	initial, err := w.store.ListConversations(ctx, ownerID, true)
	if err != nil {
		w.lists.Unsubscribe(ownerID, subID)
		return nil, err
	}
	w.lists.SendTo(ownerID, subID, initial)

	return ch, nil
}

// Close shuts down all subscriptions. The underlying store is not closed.
func (w *Watcher) Close() error {
	w.messages.Close()
	w.lists.Close()
	return nil
}

// --- store.Store delegation with republish ---

func (w *Watcher) CreateConversation(ctx context.Context, conv *store.Conversation) error {
	if err := w.store.CreateConversation(ctx, conv); err != nil {
		return err
	}
	w.republishList(conv.OwnerID)
	return nil
}

func (w *Watcher) GetConversation(ctx context.Context, id string) (*store.Conversation, error) {
	return w.store.GetConversation(ctx, id)
}

func (w *Watcher) ListConversations(ctx context.Context, ownerID string, includeArchived bool) ([]*store.Conversation, error) {
	return w.store.ListConversations(ctx, ownerID, includeArchived)
}

func (w *Watcher) RenameConversation(ctx context.Context, id, title string) error {
	if err := w.store.RenameConversation(ctx, id, title); err != nil {
		return err
	}
	w.republishListFor(id)
	return nil
}

func (w *Watcher) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := w.store.SetArchived(ctx, id, archived); err != nil {
		return err
	}
	w.republishListFor(id)
	return nil
}

func (w *Watcher) DeleteConversation(ctx context.Context, id string) error {
	// Owner must be resolved before the document disappears
	conv, err := w.store.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	if err := w.store.DeleteConversation(ctx, id); err != nil {
		return err
	}

	w.republishList(conv.OwnerID)
	// Message subscribers observe the cascade as an empty snapshot
	w.messages.Publish(id, nil)
	return nil
}

func (w *Watcher) AppendMessage(ctx context.Context, msg *store.Message) error {
	if err := w.store.AppendMessage(ctx, msg); err != nil {
		return err
	}
	w.republishMessages(msg.ConversationID)
	return nil
}

func (w *Watcher) ListMessages(ctx context.Context, conversationID string) ([]*store.Message, error) {
	return w.store.ListMessages(ctx, conversationID)
}

// republishMessages queries the current log and fans it out. Uses a detached
// timeout context so delivery does not depend on the writer's request context.
func (w *Watcher) republishMessages(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotQueryTimeout)
	defer cancel()

	snapshot, err := w.store.ListMessages(ctx, conversationID)
	if err != nil {
		w.logger.Error("failed to query message snapshot",
			"error", err,
			"conversation_id", conversationID)
		return
	}
	w.messages.Publish(conversationID, snapshot)
}

// republishList queries the owner's conversation listing and fans it out.
func (w *Watcher) republishList(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotQueryTimeout)
	defer cancel()

	snapshot, err := w.store.ListConversations(ctx, ownerID, true)
	if err != nil {
		w.logger.Error("failed to query conversation snapshot",
			"error", err,
			"owner_id", ownerID)
		return
	}
	w.lists.Publish(ownerID, snapshot)
}

// republishListFor resolves a conversation's owner, then republishes the
// owner's listing.
func (w *Watcher) republishListFor(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotQueryTimeout)
	defer cancel()

	conv, err := w.store.GetConversation(ctx, conversationID)
	if err != nil {
		w.logger.Error("failed to resolve conversation owner",
			"error", err,
			"conversation_id", conversationID)
		return
	}
	w.republishList(conv.OwnerID)
}

// Ensure Watcher satisfies the store contract so callers can treat it as one
var _ store.Store = (*Watcher)(nil)

// ABOUTME: Tests for the Watcher live-query store wrapper
// ABOUTME: Verifies initial snapshots, republish on writes, and cascade visibility

package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vilora/vilora-gateway/internal/store"
)

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	w := NewWatcher(store.NewMockStore(), nil)
	t.Cleanup(func() { w.Close() })
	return w
}

func awaitMessages(t *testing.T, ch <-chan []*store.Message) []*store.Message {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message snapshot")
		return nil
	}
}

func awaitConversations(t *testing.T, ch <-chan []*store.Conversation) []*store.Conversation {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for conversation snapshot")
		return nil
	}
}

func TestWatcher_WatchMessages_InitialSnapshot(t *testing.T) {
	w := newTestWatcher(t)
	ctx := t.Context()

	conv := &store.Conversation{OwnerID: "owner-1"}
	require.NoError(t, w.CreateConversation(ctx, conv))
	require.NoError(t, w.AppendMessage(ctx, &store.Message{
		ConversationID: conv.ID,
		Sender:         store.SenderUser,
		Body:           "already here",
	}))

	ch, err := w.WatchMessages(ctx, conv.ID)
	require.NoError(t, err)

	snap := awaitMessages(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, "already here", snap[0].Body)
}

func TestWatcher_AppendMessage_EchoesToSubscribers(t *testing.T) {
	w := newTestWatcher(t)
	ctx := t.Context()

	conv := &store.Conversation{OwnerID: "owner-1"}
	require.NoError(t, w.CreateConversation(ctx, conv))

	ch, err := w.WatchMessages(ctx, conv.ID)
	require.NoError(t, err)
	assert.Empty(t, awaitMessages(t, ch)) // initial snapshot is empty

	require.NoError(t, w.AppendMessage(ctx, &store.Message{
		ConversationID: conv.ID,
		Sender:         store.SenderUser,
		Body:           "first",
	}))

	snap := awaitMessages(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, "first", snap[0].Body)

	// The snapshot is always the whole ordered log, not a delta
	require.NoError(t, w.AppendMessage(ctx, &store.Message{
		ConversationID: conv.ID,
		Sender:         store.SenderBot,
		Body:           "second",
	}))

	snap = awaitMessages(t, ch)
	require.Len(t, snap, 2)
	assert.Equal(t, "first", snap[0].Body)
	assert.Equal(t, "second", snap[1].Body)
}

func TestWatcher_WatchConversations_TracksListing(t *testing.T) {
	w := newTestWatcher(t)
	ctx := t.Context()

	ch, err := w.WatchConversations(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, awaitConversations(t, ch))

	conv := &store.Conversation{OwnerID: "owner-1"}
	require.NoError(t, w.CreateConversation(ctx, conv))

	snap := awaitConversations(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, conv.ID, snap[0].ID)

	// Rename republishes the listing
	require.NoError(t, w.RenameConversation(ctx, conv.ID, "Renamed"))
	snap = awaitConversations(t, ch)
	require.Len(t, snap, 1)
	assert.Equal(t, "Renamed", snap[0].Title)

	// Archive keeps the document in the watch feed (consumers filter)
	require.NoError(t, w.SetArchived(ctx, conv.ID, true))
	snap = awaitConversations(t, ch)
	require.Len(t, snap, 1)
	assert.True(t, snap[0].Archived)
}

func TestWatcher_DeleteConversation_PublishesEmptyLogAndListing(t *testing.T) {
	w := newTestWatcher(t)
	ctx := t.Context()

	conv := &store.Conversation{OwnerID: "owner-1"}
	require.NoError(t, w.CreateConversation(ctx, conv))
	require.NoError(t, w.AppendMessage(ctx, &store.Message{
		ConversationID: conv.ID,
		Sender:         store.SenderUser,
		Body:           "doomed",
	}))

	msgCh, err := w.WatchMessages(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, awaitMessages(t, msgCh), 1)

	listCh, err := w.WatchConversations(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, awaitConversations(t, listCh), 1)

	require.NoError(t, w.DeleteConversation(ctx, conv.ID))

	assert.Empty(t, awaitMessages(t, msgCh))
	assert.Empty(t, awaitConversations(t, listCh))
}

func TestWatcher_DeleteConversation_NotFound(t *testing.T) {
	w := newTestWatcher(t)
	assert.ErrorIs(t, w.DeleteConversation(t.Context(), "missing"), store.ErrNotFound)
}

func TestWatcher_WatchMessages_OtherConversationsDoNotLeak(t *testing.T) {
	w := newTestWatcher(t)
	ctx := t.Context()

	convA := &store.Conversation{OwnerID: "owner-1"}
	convB := &store.Conversation{OwnerID: "owner-1"}
	require.NoError(t, w.CreateConversation(ctx, convA))
	require.NoError(t, w.CreateConversation(ctx, convB))

	ch, err := w.WatchMessages(ctx, convA.ID)
	require.NoError(t, err)
	assert.Empty(t, awaitMessages(t, ch))

	require.NoError(t, w.AppendMessage(ctx, &store.Message{
		ConversationID: convB.ID,
		Sender:         store.SenderUser,
		Body:           "elsewhere",
	}))

	select {
	case snap := <-ch:
		t.Fatalf("subscriber for conversation A received snapshot for B: %v", snap)
	case <-time.After(50 * time.Millisecond):
	}
}

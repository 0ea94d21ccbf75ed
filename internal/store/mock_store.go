// ABOUTME: In-memory Store implementation for tests
// ABOUTME: Mirrors SQLiteStore semantics including cascade delete and orphan-append rejection

package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockStore is an in-memory Store for testing. It follows the same contract
// as SQLiteStore: store-assigned ids and timestamps, atomic cascade delete,
// ErrNotFound for orphan appends. Failure injection hooks let tests exercise
// error paths.
type MockStore struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
	messages      map[string][]*Message // conversationID -> append-ordered log
	seq           int64

	// Failure injection. When set, the corresponding operation returns the error.
	CreateConversationErr error
	AppendMessageErr      error
}

// NewMockStore creates an empty in-memory store
func NewMockStore() *MockStore {
	return &MockStore{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
	}
}

// nextTime hands out strictly increasing timestamps so ordering tests are
// deterministic regardless of clock resolution.
func (m *MockStore) nextTime() time.Time {
	m.seq++
	return time.Unix(0, m.seq*int64(time.Millisecond)).UTC()
}

func (m *MockStore) CreateConversation(_ context.Context, conv *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateConversationErr != nil {
		return m.CreateConversationErr
	}

	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	if conv.Title == "" {
		conv.Title = DefaultTitle
	}
	if _, exists := m.conversations[conv.ID]; exists {
		return ErrDuplicateConversation
	}
	conv.CreatedAt = m.nextTime()

	copied := *conv
	m.conversations[conv.ID] = &copied
	return nil
}

func (m *MockStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *conv
	return &copied, nil
}

func (m *MockStore) ListConversations(_ context.Context, ownerID string, includeArchived bool) ([]*Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Conversation
	for _, conv := range m.conversations {
		if conv.OwnerID != ownerID {
			continue
		}
		if conv.Archived && !includeArchived {
			continue
		}
		copied := *conv
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MockStore) RenameConversation(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Title = title
	return nil
}

func (m *MockStore) SetArchived(_ context.Context, id string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Archived = archived
	return nil
}

func (m *MockStore) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conversations[id]; !ok {
		return ErrNotFound
	}
	delete(m.conversations, id)
	delete(m.messages, id)
	return nil
}

func (m *MockStore) AppendMessage(_ context.Context, msg *Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.AppendMessageErr != nil {
		return m.AppendMessageErr
	}

	if msg.Sender != SenderUser && msg.Sender != SenderBot {
		return fmt.Errorf("invalid sender %q", msg.Sender)
	}
	if _, ok := m.conversations[msg.ConversationID]; !ok {
		return ErrNotFound
	}

	msg.ID = uuid.New().String()
	msg.CreatedAt = m.nextTime()

	copied := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &copied)
	return nil
}

func (m *MockStore) ListMessages(_ context.Context, conversationID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := m.messages[conversationID]
	out := make([]*Message, 0, len(log))
	for _, msg := range log {
		copied := *msg
		out = append(out, &copied)
	}
	return out, nil
}

func (m *MockStore) Close() error { return nil }

// Ensure MockStore implements Store interface
var _ Store = (*MockStore)(nil)

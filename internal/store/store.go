// ABOUTME: Store interface and data types for vilora-gateway persistence
// ABOUTME: Defines Conversation, Message structs and the Store contract for the document store

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested document does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateConversation is returned when trying to create a conversation that already exists
var ErrDuplicateConversation = errors.New("conversation already exists")

// DefaultTitle is the title every conversation starts with until the first
// general-path message derives a real one.
const DefaultTitle = "New Chat"

// Sender constants for message authorship
const (
	SenderUser = "user" // Message written by the caller
	SenderBot  = "bot"  // Message written on behalf of the assistant
)

// Conversation is a single owner's message log container.
// Archived conversations are hidden from the default listing but never deleted.
type Conversation struct {
	ID        string
	OwnerID   string
	Title     string
	Archived  bool
	CreatedAt time.Time
}

// Message is one entry in a conversation's append-only log.
// ID and CreatedAt are assigned by the store on append; messages are never
// edited or reordered after the fact.
type Message struct {
	ID             string
	ConversationID string
	Sender         string // "user" or "bot"
	Body           string
	CreatedAt      time.Time
}

// Store defines the read/write contract the conversation layer requires from
// the backing document store. Implementations assign write timestamps
// server-side and must delete a conversation's messages atomically with the
// conversation itself.
type Store interface {
	// Conversations
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	ListConversations(ctx context.Context, ownerID string, includeArchived bool) ([]*Conversation, error)
	RenameConversation(ctx context.Context, id, title string) error
	SetArchived(ctx context.Context, id string, archived bool) error

	// DeleteConversation removes the conversation and all of its messages as
	// one all-or-nothing batch. Returns ErrNotFound if the conversation does
	// not exist.
	DeleteConversation(ctx context.Context, id string) error

	// Messages (append-only log)
	AppendMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*Message, error)

	// Close releases any resources held by the store
	Close() error
}

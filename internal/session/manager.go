// ABOUTME: Conversation session state machine owning the active conversation
// ABOUTME: Routes sends through intent classification to the service proxy

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vilora/vilora-gateway/internal/auth"
	"github.com/vilora/vilora-gateway/internal/conversation"
	"github.com/vilora/vilora-gateway/internal/geo"
	"github.com/vilora/vilora-gateway/internal/proxy"
	"github.com/vilora/vilora-gateway/internal/store"
)

// Session errors
var (
	// ErrBusy is returned when a send arrives while a previous send's
	// response is still pending. Sends are rejected, never queued.
	ErrBusy = errors.New("a response is still pending")

	// ErrEmptyMessage is returned for a send with no text and no attachment.
	ErrEmptyMessage = errors.New("nothing to send")
)

// User-facing bot messages. These are product strings, not log text.
const (
	locationPromptMessage = "🌍 I need your location to get the weather. Please allow location access when prompted."
	apologyMessage        = "😅 Sorry, I ran into a problem trying to respond. Let's try that again!"
)

const titleMaxLen = 40

// Proxy is the subset of the service proxy the session manager drives.
type Proxy interface {
	Generate(ctx context.Context, callerID string, history []proxy.Turn, persona string) (string, error)
	Weather(ctx context.Context, callerID string, latitude, longitude float64) (*proxy.WeatherReport, error)
	News(ctx context.Context, callerID, country string) ([]proxy.Article, error)
}

// Options carries the per-session knobs that would otherwise be globals.
type Options struct {
	// Persona tags outbound generation requests. Optional.
	Persona string

	// Locator resolves the caller's position, acquired at most once per
	// session. Optional; absence behaves like a denial.
	Locator geo.Locator

	// Geocoder maps coordinates to a country code for the news path.
	// Optional; absence falls back to geo.DefaultCountry.
	Geocoder geo.Geocoder

	// Classify overrides the intent heuristic. Defaults to ClassifyIntent.
	Classify Classifier

	// Notify receives transient user-facing notifications. Optional.
	Notify func(message string)

	Logger *slog.Logger
}

// Manager owns one signed-in caller's session: the active conversation id,
// the locally materialized message log, and the pending-request gate.
// The message log is replaced wholesale by each subscription snapshot;
// a local append becomes visible only once the subscription echoes it back.
type Manager struct {
	watcher  *conversation.Watcher
	proxy    Proxy
	identity *auth.Identity

	persona  string
	locator  geo.Locator
	geocoder geo.Geocoder
	classify Classifier
	notify   func(string)
	logger   *slog.Logger

	mu          sync.Mutex
	activeID    string
	messages    []*store.Message
	awaiting    bool
	cancelWatch context.CancelFunc

	// Geolocation is acquired at most once per session; a denial is
	// remembered and not retried.
	locationTried bool
	coords        *geo.Coordinates
}

// NewManager creates a session manager for the given caller identity.
func NewManager(watcher *conversation.Watcher, p Proxy, identity *auth.Identity, opts Options, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	classify := opts.Classify
	if classify == nil {
		classify = ClassifyIntent
	}
	notify := opts.Notify
	if notify == nil {
		notify = func(string) {}
	}
	return &Manager{
		watcher:  watcher,
		proxy:    p,
		identity: identity,
		persona:  opts.Persona,
		locator:  opts.Locator,
		geocoder: opts.Geocoder,
		classify: classify,
		notify:   notify,
		logger:   logger.With("component", "session"),
	}
}

// Active returns the active conversation id, or "" when none is selected.
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Messages returns a copy of the locally materialized message log for the
// active conversation, ordered by creation time ascending.
func (m *Manager) Messages() []*store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*store.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Send runs one round trip: persist the user message, classify it, call the
// matching proxy capability, and persist the bot reply. The attachment
// parameter only participates in the no-op check; uploads are not forwarded.
//
// Returns ErrBusy while a previous send's response is pending. On proxy
// failure a single apology bot message is appended, the notifier fires, and
// the error is returned; the persisted user message is never rolled back.
func (m *Manager) Send(ctx context.Context, text, attachment string) error {
	if strings.TrimSpace(text) == "" && attachment == "" {
		return ErrEmptyMessage
	}

	m.mu.Lock()
	if m.awaiting {
		m.mu.Unlock()
		return ErrBusy
	}
	m.awaiting = true
	m.mu.Unlock()

	// The gate must drop on every exit path or the session locks permanently.
	defer func() {
		m.mu.Lock()
		m.awaiting = false
		m.mu.Unlock()
	}()

	convID, err := m.ensureConversation(ctx)
	if err != nil {
		m.notify("Could not create a new chat. Please try again.")
		return fmt.Errorf("creating conversation: %w", err)
	}

	// Snapshot the log before the append; the general path builds history
	// from this plus the just-sent text, never from the echo.
	prior := m.Messages()

	userMsg := &store.Message{
		ConversationID: convID,
		Sender:         store.SenderUser,
		Body:           text,
	}
	if err := m.watcher.AppendMessage(ctx, userMsg); err != nil {
		m.notify("Could not send your message. Please try again.")
		return fmt.Errorf("appending user message: %w", err)
	}

	switch m.classify(text) {
	case IntentWeather:
		return m.sendWeather(ctx, convID)
	case IntentNews:
		return m.sendNews(ctx, convID)
	default:
		return m.sendGeneral(ctx, convID, prior, text)
	}
}

// sendWeather requires a previously acquired location; without one the bot
// asks for it and no proxy call is made.
func (m *Manager) sendWeather(ctx context.Context, convID string) error {
	coords, ok := m.location(ctx)
	if !ok {
		return m.appendBot(ctx, convID, locationPromptMessage)
	}

	report, err := m.proxy.Weather(ctx, m.identity.UserID, coords.Latitude, coords.Longitude)
	if err != nil {
		return m.fail(ctx, convID, err)
	}

	body := fmt.Sprintf("🌡️ The current temperature is **%g°C** with wind speeds of **%g km/h**.",
		report.TemperatureC, report.WindSpeed)
	return m.appendBot(ctx, convID, body)
}

// sendNews seeds reverse geocoding with the known location or the default
// one; a geocoding failure falls back to the default country rather than
// failing the send.
func (m *Manager) sendNews(ctx context.Context, convID string) error {
	coords, ok := m.location(ctx)
	if !ok {
		coords = geo.DefaultCoordinates
	}

	country := geo.DefaultCountry
	if m.geocoder != nil {
		code, err := m.geocoder.CountryCode(ctx, coords)
		if err != nil {
			m.logger.Warn("reverse geocoding failed, using default country",
				"country", country, "error", err)
		} else {
			country = code
		}
	}

	articles, err := m.proxy.News(ctx, m.identity.UserID, country)
	if err != nil {
		return m.fail(ctx, convID, err)
	}

	var b strings.Builder
	b.WriteString("📰 **Here are the latest headlines for you:**\n\n")
	for i, article := range articles {
		fmt.Fprintf(&b, "%d. **[%s](%s)**\n", i+1, article.Title, article.URL)
	}
	return m.appendBot(ctx, convID, b.String())
}

// sendGeneral forwards the conversation history plus the just-sent text,
// deriving the auto title on the conversation's first exchange.
func (m *Manager) sendGeneral(ctx context.Context, convID string, prior []*store.Message, text string) error {
	history := make([]proxy.Turn, 0, len(prior)+1)
	for _, msg := range prior {
		role := proxy.RoleUser
		if msg.Sender == store.SenderBot {
			role = proxy.RoleModel
		}
		history = append(history, proxy.Turn{Role: role, Text: msg.Body})
	}
	history = append(history, proxy.Turn{Role: proxy.RoleUser, Text: text})

	conv, err := m.watcher.GetConversation(ctx, convID)
	if err != nil {
		return m.fail(ctx, convID, err)
	}
	if conv.Title == store.DefaultTitle {
		if err := m.watcher.RenameConversation(ctx, convID, deriveTitle(text)); err != nil {
			return m.fail(ctx, convID, err)
		}
	}

	reply, err := m.proxy.Generate(ctx, m.identity.UserID, history, m.persona)
	if err != nil {
		return m.fail(ctx, convID, err)
	}
	return m.appendBot(ctx, convID, reply)
}

// SetActive selects the conversation to render, detaching the previous
// subscription. In-flight proxy calls bound to the old conversation still
// complete and append there.
func (m *Manager) SetActive(ctx context.Context, id string) error {
	conv, err := m.watcher.GetConversation(ctx, id)
	if err != nil {
		return err
	}
	if conv.OwnerID != m.identity.UserID {
		return store.ErrNotFound
	}
	return m.attach(id)
}

// Deactivate clears the active conversation and its subscription.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearActiveLocked()
}

// Delete removes a conversation and all of its messages. If it was the
// active conversation the session transitions back to having none.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.watcher.DeleteConversation(ctx, id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeID == id {
		m.clearActiveLocked()
	}
	return nil
}

// Archive toggles the archived flag. An archived conversation cannot remain
// the active view, so archiving the active one clears the active id.
func (m *Manager) Archive(ctx context.Context, id string, archived bool) error {
	if err := m.watcher.SetArchived(ctx, id, archived); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if archived && m.activeID == id {
		m.clearActiveLocked()
	}
	return nil
}

// Rename sets an explicit title; after this the title never changes
// automatically again since it no longer matches the default.
func (m *Manager) Rename(ctx context.Context, id, title string) error {
	return m.watcher.RenameConversation(ctx, id, title)
}

// Conversations lists the caller's conversations, newest first.
func (m *Manager) Conversations(ctx context.Context, includeArchived bool) ([]*store.Conversation, error) {
	return m.watcher.ListConversations(ctx, m.identity.UserID, includeArchived)
}

// Close detaches the active subscription.
func (m *Manager) Close() {
	m.Deactivate()
}

// ensureConversation returns the active conversation id, creating a new
// conversation when the session has none.
func (m *Manager) ensureConversation(ctx context.Context) (string, error) {
	m.mu.Lock()
	active := m.activeID
	m.mu.Unlock()
	if active != "" {
		return active, nil
	}

	conv := &store.Conversation{
		OwnerID: m.identity.UserID,
		Title:   store.DefaultTitle,
	}
	if err := m.watcher.CreateConversation(ctx, conv); err != nil {
		return "", err
	}
	if err := m.attach(conv.ID); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// attach subscribes to the conversation's message snapshots and adopts it
// as active. The previous subscription, if any, is detached first.
func (m *Manager) attach(id string) error {
	watchCtx, cancel := context.WithCancel(context.Background())
	ch, err := m.watcher.WatchMessages(watchCtx, id)
	if err != nil {
		cancel()
		return err
	}

	m.mu.Lock()
	m.clearActiveLocked()
	m.activeID = id
	m.cancelWatch = cancel
	m.mu.Unlock()

	go func() {
		for snapshot := range ch {
			m.mu.Lock()
			// Replace wholesale; never merge with local state.
			if m.activeID == id {
				m.messages = snapshot
			}
			m.mu.Unlock()
		}
	}()
	return nil
}

func (m *Manager) clearActiveLocked() {
	if m.cancelWatch != nil {
		m.cancelWatch()
		m.cancelWatch = nil
	}
	m.activeID = ""
	m.messages = nil
}

// location acquires the caller's position at most once per session and
// remembers a denial.
func (m *Manager) location(ctx context.Context) (geo.Coordinates, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locationTried {
		m.locationTried = true
		if m.locator != nil {
			coords, err := m.locator.Locate(ctx)
			if err != nil {
				m.logger.Debug("location unavailable", "error", err)
			} else {
				m.coords = &coords
			}
		}
	}
	if m.coords == nil {
		return geo.Coordinates{}, false
	}
	return *m.coords, true
}

// fail handles a proxy failure: one apology bot message, one transient
// notification, and the error surfaced to the caller unchanged.
func (m *Manager) fail(ctx context.Context, convID string, cause error) error {
	m.notify(fmt.Sprintf("An error occurred: %v. Please try again.", cause))
	if err := m.appendBot(ctx, convID, apologyMessage); err != nil {
		m.logger.Warn("appending apology message failed", "conversation_id", convID, "error", err)
	}
	return cause
}

// appendBot persists a bot message. A reply whose conversation was deleted
// while the proxy call was in flight is dropped: the store rejects the
// orphan write and the drop is logged, not surfaced.
func (m *Manager) appendBot(ctx context.Context, convID, body string) error {
	msg := &store.Message{
		ConversationID: convID,
		Sender:         store.SenderBot,
		Body:           body,
	}
	err := m.watcher.AppendMessage(ctx, msg)
	if errors.Is(err, store.ErrNotFound) {
		m.logger.Info("dropping reply for removed conversation", "conversation_id", convID)
		return nil
	}
	return err
}

// deriveTitle builds the one-shot auto title from the first message text.
func deriveTitle(text string) string {
	runes := []rune(text)
	if len(runes) <= titleMaxLen {
		return text
	}
	return string(runes[:titleMaxLen]) + "..."
}

// ABOUTME: HTTP API handlers for the proxy capabilities and conversations
// ABOUTME: Includes the SSE endpoint streaming live message snapshots

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vilora/vilora-gateway/internal/auth"
	"github.com/vilora/vilora-gateway/internal/briefing"
	"github.com/vilora/vilora-gateway/internal/proxy"
	"github.com/vilora/vilora-gateway/internal/store"
)

// TurnPayload is one chat history entry in a generate request.
type TurnPayload struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// GenerateRequest is the JSON request body for POST /api/generate.
type GenerateRequest struct {
	ChatHistory []TurnPayload `json:"chat_history"`
	Persona     string        `json:"persona,omitempty"`
}

// GenerateResponse is the JSON response for POST /api/generate.
type GenerateResponse struct {
	Text string `json:"text"`
}

// WeatherRequest is the JSON request body for POST /api/weather.
// Pointers distinguish a missing coordinate from zero.
type WeatherRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// NewsRequest is the JSON request body for POST /api/news.
type NewsRequest struct {
	Country string `json:"country"`
}

// NewsResponse is the JSON response for POST /api/news.
type NewsResponse struct {
	Articles []proxy.Article `json:"articles"`
}

// BriefingResponse is the JSON response for GET /api/briefing.
type BriefingResponse struct {
	Greeting string `json:"greeting"`
}

// ConversationResponse is the JSON shape of a conversation.
type ConversationResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Archived  bool   `json:"archived"`
	CreatedAt string `json:"created_at"`
}

// CreateConversationRequest is the JSON request body for POST /api/conversations.
type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

// UpdateConversationRequest is the JSON request body for PATCH /api/conversations/{id}.
// Nil fields are left unchanged.
type UpdateConversationRequest struct {
	Title    *string `json:"title"`
	Archived *bool   `json:"archived"`
}

// MessageResponse is the JSON shape of a message.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Sender         string `json:"sender"`
	Body           string `json:"body"`
	CreatedAt      string `json:"created_at"`
}

// AppendMessageRequest is the JSON request body for POST /api/conversations/{id}/messages.
type AppendMessageRequest struct {
	Sender string `json:"sender"`
	Body   string `json:"body"`
}

func conversationResponse(c *store.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		Archived:  c.Archived,
		CreatedAt: c.CreatedAt.Format(time.RFC3339Nano),
	}
}

func messageResponse(m *store.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Sender:         m.Sender,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339Nano),
	}
}

func messageResponses(msgs []*store.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageResponse(m))
	}
	return out
}

// handleGenerate handles POST /api/generate.
func (g *Gateway) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
		return
	}

	history := make([]proxy.Turn, 0, len(req.ChatHistory))
	for _, t := range req.ChatHistory {
		history = append(history, proxy.Turn{Role: t.Role, Text: t.Text})
	}

	id := auth.FromContext(r.Context())
	text, err := g.proxy.Generate(r.Context(), callerID(id), history, req.Persona)
	if err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, GenerateResponse{Text: text})
}

// handleWeather handles POST /api/weather.
func (g *Gateway) handleWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req WeatherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		g.writeError(w, proxy.E(proxy.KindInvalidArgument, "latitude and longitude are required"))
		return
	}

	id := auth.FromContext(r.Context())
	report, err := g.proxy.Weather(r.Context(), callerID(id), *req.Latitude, *req.Longitude)
	if err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, report)
}

// handleNews handles POST /api/news.
func (g *Gateway) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req NewsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
		return
	}

	id := auth.FromContext(r.Context())
	articles, err := g.proxy.News(r.Context(), callerID(id), req.Country)
	if err != nil {
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, NewsResponse{Articles: articles})
}

// handleBriefing handles GET /api/briefing.
func (g *Gateway) handleBriefing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	greeting, err := g.briefing.Greeting(r.Context(), auth.FromContext(r.Context()))
	if err != nil {
		if errors.Is(err, briefing.ErrNoIdentity) {
			g.writeError(w, proxy.E(proxy.KindUnauthenticated, "no caller identity"))
			return
		}
		g.writeError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, BriefingResponse{Greeting: greeting})
}

// handleConversations handles GET and POST /api/conversations.
func (g *Gateway) handleConversations(w http.ResponseWriter, r *http.Request) {
	id := auth.FromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		includeArchived := r.URL.Query().Get("archived") == "true"
		convs, err := g.watcher.ListConversations(r.Context(), id.UserID, includeArchived)
		if err != nil {
			g.writeStoreError(w, err)
			return
		}
		out := make([]ConversationResponse, 0, len(convs))
		for _, c := range convs {
			out = append(out, conversationResponse(c))
		}
		g.writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		// An absent body creates a conversation with the default title.
		var req CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
			return
		}
		title := req.Title
		if title == "" {
			title = store.DefaultTitle
		}
		conv := &store.Conversation{OwnerID: id.UserID, Title: title}
		if err := g.watcher.CreateConversation(r.Context(), conv); err != nil {
			g.writeStoreError(w, err)
			return
		}
		g.writeJSON(w, http.StatusCreated, conversationResponse(conv))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleConversationRoutes dispatches /api/conversations/{id}[/messages|/watch].
func (g *Gateway) handleConversationRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	convID, sub, _ := strings.Cut(rest, "/")
	if convID == "" {
		http.NotFound(w, r)
		return
	}
	if convID == "watch" && sub == "" {
		g.handleWatchList(w, r)
		return
	}

	// Every sub-route requires the conversation to exist and belong to
	// the caller; foreign conversations are indistinguishable from
	// missing ones.
	conv, err := g.watcher.GetConversation(r.Context(), convID)
	if err != nil {
		g.writeStoreError(w, err)
		return
	}
	if conv.OwnerID != auth.FromContext(r.Context()).UserID {
		g.writeStoreError(w, store.ErrNotFound)
		return
	}

	switch sub {
	case "":
		g.handleConversation(w, r, conv)
	case "messages":
		g.handleMessages(w, r, conv)
	case "watch":
		g.handleWatch(w, r, conv)
	default:
		http.NotFound(w, r)
	}
}

func (g *Gateway) handleConversation(w http.ResponseWriter, r *http.Request, conv *store.Conversation) {
	switch r.Method {
	case http.MethodGet:
		g.writeJSON(w, http.StatusOK, conversationResponse(conv))

	case http.MethodPatch:
		var req UpdateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
			return
		}
		if req.Title != nil {
			if err := g.watcher.RenameConversation(r.Context(), conv.ID, *req.Title); err != nil {
				g.writeStoreError(w, err)
				return
			}
		}
		if req.Archived != nil {
			if err := g.watcher.SetArchived(r.Context(), conv.ID, *req.Archived); err != nil {
				g.writeStoreError(w, err)
				return
			}
		}
		updated, err := g.watcher.GetConversation(r.Context(), conv.ID)
		if err != nil {
			g.writeStoreError(w, err)
			return
		}
		g.writeJSON(w, http.StatusOK, conversationResponse(updated))

	case http.MethodDelete:
		if err := g.watcher.DeleteConversation(r.Context(), conv.ID); err != nil {
			g.writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request, conv *store.Conversation) {
	switch r.Method {
	case http.MethodGet:
		msgs, err := g.watcher.ListMessages(r.Context(), conv.ID)
		if err != nil {
			g.writeStoreError(w, err)
			return
		}
		g.writeJSON(w, http.StatusOK, messageResponses(msgs))

	case http.MethodPost:
		var req AppendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			g.writeError(w, proxy.E(proxy.KindInvalidArgument, "invalid JSON body"))
			return
		}
		msg := &store.Message{
			ConversationID: conv.ID,
			Sender:         req.Sender,
			Body:           req.Body,
		}
		if err := g.watcher.AppendMessage(r.Context(), msg); err != nil {
			g.writeStoreError(w, err)
			return
		}
		g.writeJSON(w, http.StatusCreated, messageResponse(msg))

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleWatch handles GET /api/conversations/{id}/watch. It streams full
// message snapshots as SSE events until the client disconnects; each event
// carries the complete ordered log, never a delta.
func (g *Gateway) handleWatch(w http.ResponseWriter, r *http.Request, conv *store.Conversation) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		g.writeError(w, proxy.E(proxy.KindInternal, "streaming not supported"))
		return
	}

	snapshots, err := g.watcher.WatchMessages(r.Context(), conv.ID)
	if err != nil {
		g.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	for snapshot := range snapshots {
		g.writeSSEEvent(w, "snapshot", messageResponses(snapshot))
		flusher.Flush()
	}
}

// handleWatchList handles GET /api/conversations/watch. It streams the
// caller's full conversation listing as SSE events, republished on every
// create, rename, archive toggle, or delete.
func (g *Gateway) handleWatchList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		g.writeError(w, proxy.E(proxy.KindInternal, "streaming not supported"))
		return
	}

	id := auth.FromContext(r.Context())
	snapshots, err := g.watcher.WatchConversations(r.Context(), id.UserID)
	if err != nil {
		g.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	flusher.Flush()

	for snapshot := range snapshots {
		out := make([]ConversationResponse, 0, len(snapshot))
		for _, c := range snapshot {
			out = append(out, conversationResponse(c))
		}
		g.writeSSEEvent(w, "snapshot", out)
		flusher.Flush()
	}
}

// writeSSEEvent writes a single SSE event to the response writer.
func (g *Gateway) writeSSEEvent(w http.ResponseWriter, event string, data interface{}) {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		g.logger.Error("failed to marshal SSE data", "error", err)
		return
	}

	fmt.Fprintf(w, "event: %s\n", event)
	fmt.Fprintf(w, "data: %s\n\n", dataJSON)
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a proxy error kind to its HTTP status and writes the
// error envelope.
func (g *Gateway) writeError(w http.ResponseWriter, err error) {
	kind := proxy.KindOf(err)

	status := http.StatusInternalServerError
	switch kind {
	case proxy.KindUnauthenticated:
		status = http.StatusUnauthorized
	case proxy.KindInvalidArgument, proxy.KindFailedPrecondition:
		status = http.StatusBadRequest
	case proxy.KindNotFound:
		status = http.StatusNotFound
	}

	message := err.Error()
	var perr *proxy.Error
	if errors.As(err, &perr) {
		message = perr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   string(kind),
		"message": message,
	})
}

// writeStoreError maps store sentinel errors to HTTP statuses.
func (g *Gateway) writeStoreError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	name := "internal"
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
		name = "not-found"
	case errors.Is(err, store.ErrDuplicateConversation):
		status = http.StatusConflict
		name = "conflict"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   name,
		"message": err.Error(),
	})
}

// callerID extracts the user id from an identity, tolerating absence so
// the proxy's own unauthenticated check stays authoritative.
func callerID(id *auth.Identity) string {
	if id == nil {
		return ""
	}
	return id.UserID
}

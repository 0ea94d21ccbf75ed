// Package gateway orchestrates the vilora-gateway server components.
//
// # Overview
//
// The gateway package is the central coordinator of the vilora-gateway
// server. It owns the backing store with its live watcher, the service
// proxy, the briefing assembler, and the HTTP server lifecycle.
//
// # HTTP API
//
// The gateway exposes HTTP endpoints in api.go:
//
//   - POST /api/generate - Forward chat history to the generation provider
//   - POST /api/weather - Current conditions for a coordinate pair
//   - POST /api/news - Top headlines for a 2-letter country code
//   - GET /api/briefing - One-shot session greeting
//   - GET/POST /api/conversations - List and create conversations
//   - GET /api/conversations/watch - SSE stream of the caller's listing
//   - GET/PATCH/DELETE /api/conversations/{id} - Single conversation
//   - GET/POST /api/conversations/{id}/messages - Message log
//   - GET /api/conversations/{id}/watch - SSE full-snapshot stream
//   - GET /health - Liveness check
//   - GET /health/ready - Readiness check
//
// Every /api route requires a JWT bearer token; proxy failures map to
// HTTP statuses by error kind (unauthenticated 401, invalid-argument and
// failed-precondition 400, not-found 404, internal 500) with a
// {"error","message"} envelope.
//
// # Lifecycle
//
// New wires all components from config. Run starts the HTTP server and
// blocks until the context is canceled, then shuts the server, watcher,
// and store down gracefully within the configured timeout.
package gateway

// Package proxy forwards validated caller requests to keyed third-party
// services and normalizes their failure modes into a stable contract.
//
// # Capabilities
//
// Three operations share one shape — validate, forward with a server-held
// credential, normalize:
//
//   - Generate: full chat history to the Gemini API, first candidate's text back
//   - Weather: coordinates to OpenWeather, metric temperature and wind speed back
//   - News: 2-letter country code to NewsAPI, at most five title/url pairs back
//
// # Error contract
//
// Every failure is exactly one Kind: unauthenticated (no caller identity,
// checked before anything else), invalid-argument (malformed request),
// failed-precondition (credential absent), not-found (upstream returned no
// usable payload), internal (upstream transport or parse failure). The proxy
// never retries — each upstream call is a billable, non-idempotent side
// effect, and retry policy belongs to the caller.
//
// The Service holds no cross-request state; distinct requests may execute
// with unbounded parallelism.
package proxy

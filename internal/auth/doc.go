// Package auth provides authentication for vilora-gateway.
//
// # Authentication Method
//
// Users authenticate with JWT bearer tokens signed with HS256 using the
// configured jwt_secret. The token carries:
//
//   - sub: stable user identifier (required)
//   - name: human-readable display name (optional)
//
// # Identity Propagation
//
// HTTP middleware verifies the Authorization header and attaches an
// Identity to the request context:
//
//	auth.Middleware(verifier)         // rejects unauthenticated requests
//	auth.OptionalMiddleware(verifier) // continues as anonymous on failure
//
// Handlers retrieve the caller with auth.FromContext(ctx), which returns
// nil when no identity is attached.
//
// # Token Management
//
// The JWTVerifier both verifies and mints tokens:
//
//	token, err := verifier.Generate(userID, displayName, expiresIn)
//	id, err := verifier.Verify(token)
package auth

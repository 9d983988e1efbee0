// Package auth verifies the identity of HTTP callers.
//
// Subpackages:
//
//   - auth/jwt: generic JWT token service using Go generics
//   - auth/authctx: type-safe request context propagation for claims
//
// The top-level package provides the Provider contract used by the server
// middleware and JWTProvider, which verifies HMAC-signed bearer tokens. The
// token subject becomes the owner id of every catalog operation.
//
//	auth:
//	  jwt:
//	    secret: "at-least-32-bytes-of-secret-material"
//	    access_token_ttl: "15m"
package auth

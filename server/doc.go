// Package server provides the filevault HTTP server: Gin with h2c, a standard
// middleware stack and component lifecycle management.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request id generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limits
//   - RequestLogger: request logging with duration tracking
//   - RequireAuth / OptionalAuth: bearer token authentication
//
// # Endpoints
//
// Built-in endpoints (server/endpoint): /health aggregates component health,
// /alive answers liveness probes. The file API lives in server/api.
package server

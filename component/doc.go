// Package component defines the lifecycle contract shared by filevault's
// infrastructure pieces (storage roots, database, redis, HTTP server) and a
// registry that starts them in order and stops them in reverse.
package component

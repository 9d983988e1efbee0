// Package errors provides the structured error type shared by every filevault
// package. Storage backends, the share-link lifecycle and the file catalog all
// surface *AppError values carrying a machine-readable code, an HTTP status
// and a retryable flag, so callers can branch on HasCode without string
// matching.
package errors

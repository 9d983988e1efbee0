package errors

import (
	"fmt"
	"net/http"
)

// PathSecurityViolation is returned when a caller path escapes its storage
// root. It is never retryable.
func PathSecurityViolation(path string) *AppError {
	return &AppError{
		Code: ErrCodePathSecurityViolation, Message: "The requested path is outside the storage root.",
		HTTPStatus: http.StatusForbidden, Retryable: false,
		Details: map[string]any{"path": path},
	}
}

// ObjectNotFound is returned when a stored object required by the operation is absent.
func ObjectNotFound(path string) *AppError {
	return NotFound("object", path)
}

// ObjectAlreadyExists is returned when the target path is occupied and overwrite is not intended.
func ObjectAlreadyExists(path string) *AppError {
	return AlreadyExists("object").WithDetail("path", path)
}

// NotAuthorized is returned when the caller is not the recorded owner of resource.
func NotAuthorized(resource, id string) *AppError {
	err := Forbidden(fmt.Sprintf("You are not the owner of this %s.", resource))
	err.Details = map[string]any{"resource": resource}
	if id != "" {
		err.Details["id"] = id
	}
	return err
}

// BackendUnavailable wraps a transient storage backend failure.
func BackendUnavailable(backend string, cause error) *AppError {
	return ServiceUnavailable(backend).WithCause(cause)
}

// LinkExpired is returned when a share link is past its expiry or was revoked.
func LinkExpired() *AppError {
	return &AppError{
		Code: ErrCodeLinkExpired, Message: "This share link has expired.",
		HTTPStatus: http.StatusGone, Retryable: false,
	}
}

// LinkExhausted is returned when a share link has no redemptions left.
func LinkExhausted() *AppError {
	return &AppError{
		Code: ErrCodeLinkExhausted, Message: "This share link has already been used.",
		HTTPStatus: http.StatusGone, Retryable: false,
	}
}

// InvalidPolicy is returned when share link parameters are rejected at issuance.
func InvalidPolicy(reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidPolicy, Message: fmt.Sprintf("Invalid share policy: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

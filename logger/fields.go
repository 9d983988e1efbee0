package logger

import (
	"time"
)

// Standard field key constants for structured logging.
const (
	FieldComponent     = "component"
	FieldTraceID       = "trace_id"
	FieldSpanID        = "span_id"
	FieldRequestID     = "request_id"
	FieldUserID        = "user_id"
	FieldOperation     = "operation"
	FieldStatus        = "status"
	FieldError         = "error"
	FieldDuration      = "duration_ms"
	FieldPath          = "path"
	FieldStorageClass  = "storage_class"
	FieldToken         = "token"
	FieldOwnerID       = "owner_id"
	FieldFileID        = "file_id"
	FieldSecurityEvent = "security_event"
)

// tokenPrefixLen is how much of a share token may appear in logs.
const tokenPrefixLen = 6

// Fields builds a map[string]interface{} from alternating key-value pairs.
//
//	logger.Info("saved", logger.Fields(logger.FieldPath, "a/b.txt", "size", 42))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i < len(kvs)-1; i += 2 {
		if key, ok := kvs[i].(string); ok {
			m[key] = kvs[i+1]
		}
	}
	return m
}

// ErrorFields creates fields for an operation that failed.
func ErrorFields(op string, err error) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldError:     err.Error(),
	}
}

// DurationFields creates fields for a timed operation.
func DurationFields(op string, d time.Duration) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation: op,
		FieldDuration:  d.Milliseconds(),
	}
}

// SecurityFields creates fields for a rejected path.
func SecurityFields(op, path string) map[string]interface{} {
	return map[string]interface{}{
		FieldOperation:     op,
		FieldPath:          path,
		FieldSecurityEvent: true,
	}
}

// RedactToken keeps only a short prefix of a share token so log lines can be
// correlated without leaking a usable credential.
func RedactToken(token string) string {
	if len(token) <= tokenPrefixLen {
		return "***"
	}
	return token[:tokenPrefixLen] + "..."
}

// MergeWithError adds an error field to an existing map.
func MergeWithError(fields map[string]interface{}, err error) map[string]interface{} {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields[FieldError] = err.Error()
	return fields
}

package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/filevault/logger"
)

// slowRequest marks requests worth flagging in the logs.
const slowRequest = 500 * time.Millisecond

// RequestLogger returns a Gin middleware that logs every request with method,
// path, status code, and duration. Health-check paths are skipped. Share
// tokens in /s/ paths are redacted.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isHealthEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		fields := map[string]interface{}{
			"method":      c.Request.Method,
			"path":        redactPath(c),
			"status":      status,
			"duration_ms": latency.Milliseconds(),
			"client":      c.ClientIP(),
			"bytes":       c.Writer.Size(),
		}
		if id := c.GetString(RequestIDKey); id != "" {
			fields["request_id"] = id
		}
		if latency > slowRequest {
			fields["slow"] = true
		}
		logByStatus(log, fields, status)
	}
}

func isHealthEndpoint(path string) bool {
	switch path {
	case "/health", "/alive":
		return true
	}
	return false
}

// redactPath returns the request path with any share token shortened.
func redactPath(c *gin.Context) string {
	if token := c.Param("token"); token != "" {
		full := c.FullPath()
		if full == "" {
			return c.Request.URL.Path
		}
		return strings.Replace(full, ":token", logger.RedactToken(token), 1)
	}
	return c.Request.URL.Path
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}

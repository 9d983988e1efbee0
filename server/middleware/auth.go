package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/filevault/auth"
	"github.com/kbukum/filevault/auth/authctx"
	"github.com/kbukum/filevault/errors"
	"github.com/kbukum/filevault/logger"
)

// RequireAuth returns a Gin middleware that rejects requests without a valid
// bearer token. Verified claims are stored on the request context.
func RequireAuth(p auth.Provider) gin.HandlerFunc {
	return authenticate(p, true)
}

// OptionalAuth verifies a bearer token when one is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
func OptionalAuth(p auth.Provider) gin.HandlerFunc {
	return authenticate(p, false)
}

// Caller returns the verified subject of the request, or "" for anonymous
// requests.
func Caller(c *gin.Context) string {
	claims, ok := authctx.Get[*auth.Claims](c.Request.Context())
	if !ok {
		return ""
	}
	return claims.UserID()
}

func authenticate(p auth.Provider, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			if required {
				abort(c, errors.Unauthorized("Authorization header required."))
				return
			}
			c.Next()
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abort(c, errors.Unauthorized("Invalid authorization header format."))
			return
		}

		claims, err := p.Verify(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			abort(c, errors.Wrap(err))
			return
		}

		ctx := authctx.Set(c.Request.Context(), claims)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(ctx, claims.UserID()))
		c.Next()
	}
}

func abort(c *gin.Context, err *errors.AppError) {
	c.AbortWithStatusJSON(err.HTTPStatus, err.ToResponse())
}

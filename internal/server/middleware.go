package server

import (
	"bidbot/internal/session"
	"bidbot/services/bidding/helpers"
	"bidbot/utils"
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SessionResolver turns a bearer token into a live session
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (session.Session, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if userID, ok := helpers.CurrentUser(c); ok {
		fields["user_id"] = userID
	}
	utils.Info("HTTP Request", fields)
}

// SessionMiddleware attaches the caller's session when an
// "Authorization: Bearer <token>" header is present. Requests without the
// header pass through anonymously; handlers that need an identity reject
// them. A header carrying an unknown or expired token is refused outright.
func SessionMiddleware(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}

		sess, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			helpers.HandleServiceError(c, "SessionMiddleware", err, map[string]any{"path": c.Request.URL.Path})
			return
		}

		c.Request = c.Request.WithContext(session.WithSession(c.Request.Context(), sess))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

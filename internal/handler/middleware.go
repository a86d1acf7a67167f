package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AyanS2004/Labdetect/internal/auth"
)

const headerRequestID = "X-Request-ID"

// AuthMiddleware is the gate in front of every protected route. It
// never role-checks; operations that need a role load the user
// themselves.
func AuthMiddleware(tokens *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			newErrorResponse(c, http.StatusUnauthorized, "Token is missing")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			newErrorResponse(c, http.StatusUnauthorized, "Invalid token format")
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			newErrorResponse(c, http.StatusUnauthorized, "Token is invalid or expired")
			return
		}

		c.Set(ctxUserID, claims.UserID)

		c.Next()
	}
}

// RequestID assigns each request an id and echoes it back, so log
// lines can be correlated with responses.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("RequestID", id)
		c.Writer.Header().Set(headerRequestID, id)

		c.Next()
	}
}

func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		log.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", c.GetString("RequestID")),
		)
	}
}

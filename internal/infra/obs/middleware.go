package obs

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKeyRequestID struct{}

// Middleware carries the cross-cutting gin handlers: request ids and
// structured access logs.
type Middleware struct {
	Logger *slog.Logger
}

// RequestID adopts the caller's X-Request-ID when present, otherwise
// mints one, and threads it through the request context, the response
// header and the gin keys.
func (m Middleware) RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKeyRequestID{}, id))
		c.Writer.Header().Set("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

// RequestLogger emits one access-log line per request, leveled by
// response class so 5xx noise stands out from routine traffic.
func (m Middleware) RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.Logger == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString("request_id"),
		}
		switch {
		case status >= http.StatusInternalServerError:
			m.Logger.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			m.Logger.Warn("request", attrs...)
		default:
			m.Logger.Info("request", attrs...)
		}
	}
}

// RequestIDFromContext exposes the request id to code below the HTTP
// layer, for log correlation.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID{}).(string)
	return id
}

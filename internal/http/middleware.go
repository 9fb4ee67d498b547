package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

// RequestID honors an incoming X-Request-Id and generates one
// otherwise, so log lines from proxied and direct requests correlate
// the same way.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader(requestIDHeader)

		if id == "" {
			id = uuid.NewString()
		}

		ctx.Writer.Header().Set(requestIDHeader, id)
		ctx.Set("request_id", id)
		ctx.Next()
	}
}

// RequestLogger writes one line per request after it completes. Server
// errors are logged at error level so they stand out from ordinary
// traffic; everything else, including redirects from flash flows, is
// info.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		method := ctx.Request.Method

		ctx.Next()

		status := ctx.Writer.Status()
		reqID, _ := ctx.Get("request_id")

		attrs := []any{
			"method", method,
			"path", path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", reqID,
		}

		if status >= 500 {
			log.ErrorContext(ctx.Request.Context(), "request", attrs...)
			return
		}

		log.InfoContext(ctx.Request.Context(), "request", attrs...)
	}
}

package ctxmanage

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ctxKey int

const traceIdKey ctxKey = 1

// TraceIdHeader is echoed back on every response.
const TraceIdHeader = "X-Trace-Id"

// WithTraceId stores the trace id in ctx.
func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, traceIdKey, traceId)
}

// TraceIdFromContext returns the trace id stored in ctx, or an empty string.
func TraceIdFromContext(ctx context.Context) string {
	traceId, _ := ctx.Value(traceIdKey).(string)
	return traceId
}

// GetTraceIdOfRequest returns the trace id the Logger middleware attached to the request.
// Requests that bypassed the middleware get a fresh id so log lines are never unkeyed.
func GetTraceIdOfRequest(c *gin.Context) string {
	if traceId := TraceIdFromContext(c.Request.Context()); traceId != "" {
		return traceId
	}
	return uuid.NewString()
}

package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront-service/internal/identity"
	"storefront-service/pkg/ctxmanage"
	"storefront-service/pkg/logkey"
)

// Logger tags every request with a trace id, echoes it back and logs the outcome.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceId := c.GetHeader(ctxmanage.TraceIdHeader)
		if traceId == "" {
			traceId = uuid.NewString()
		}
		ctx := ctxmanage.WithTraceId(c.Request.Context(), traceId)
		c.Request = c.Request.WithContext(ctx)
		c.Header(ctxmanage.TraceIdHeader, traceId)

		start := time.Now()
		slog.Info("started", slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method), slog.String("URL Path", c.Request.URL.Path))

		c.Next()

		slog.Info("completed", slog.String(logkey.TraceID, traceId),
			slog.String("Method", c.Request.Method), slog.String("URL Path", c.Request.URL.Path),
			slog.Int("Status Code", c.Writer.Status()), slog.Int64("Duration", time.Since(start).Milliseconds()))
	}
}

var errNilResolver = errors.New("identity resolver is nil")

// Mid holds what the identity middlewares need.
type Mid struct {
	resolver *identity.Resolver
}

func NewMid(resolver *identity.Resolver) (*Mid, error) {
	if resolver == nil {
		return nil, errNilResolver
	}
	return &Mid{resolver: resolver}, nil
}

// Identity resolves the caller from the Authorization and X-USER-KEY headers and stores the
// result in the request context. Requests without a usable identity continue; handlers that
// need one reject them.
func (m *Mid) Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.resolver.Resolve(c.GetHeader("Authorization"), c.GetHeader(identity.GuestKeyHeader))
		if err == nil {
			c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), id))
		}
		c.Next()
	}
}

// RequireUser rejects requests without a verified session.
func (m *Mid) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok || !id.IsAuthenticated() {
			slog.Error("unauthenticated request", slog.String(logkey.TraceID, ctxmanage.GetTraceIdOfRequest(c)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Unauthenticated."})
			return
		}
		c.Next()
	}
}

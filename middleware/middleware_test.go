package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/identity"
	"storefront-service/pkg/ctxmanage"
)

type sessions map[string]int64

func (s sessions) VerifySession(token string) (int64, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return 0, errors.New("invalid token")
}

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m, err := NewMid(identity.NewResolver(sessions{"good": 11}))
	require.NoError(t, err)

	r := gin.New()
	r.Use(Logger(), m.Identity())
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := identity.FromContext(c.Request.Context())
		if !ok {
			c.String(http.StatusOK, "nobody")
			return
		}
		c.String(http.StatusOK, id.String())
	})
	r.GET("/private", m.RequireUser(), func(c *gin.Context) {
		c.String(http.StatusOK, ctxmanage.TraceIdFromContext(c.Request.Context()))
	})
	return r
}

func TestIdentityMiddleware(t *testing.T) {
	r := newRouter(t)
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"bearer", map[string]string{"Authorization": "Bearer good"}, identity.User(11).String()},
		{"guest", map[string]string{identity.GuestKeyHeader: "DFS1231700000000"}, identity.Guest("DFS1231700000000").String()},
		{"bad bearer falls back", map[string]string{"Authorization": "Bearer bad", identity.GuestKeyHeader: "DFS1231700000000"}, identity.Guest("DFS1231700000000").String()},
		{"nothing", nil, "nobody"},
		{"malformed key", map[string]string{identity.GuestKeyHeader: "abc"}, "nobody"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get(ctxmanage.TraceIdHeader))
		})
	}
}

func TestRequireUser(t *testing.T) {
	r := newRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set(identity.GuestKeyHeader, "DFS1231700000000")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer good")
	req.Header.Set(ctxmanage.TraceIdHeader, "trace-1")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trace-1", rec.Body.String())
}

func TestNewMidRequiresResolver(t *testing.T) {
	_, err := NewMid(nil)
	assert.Error(t, err)
}

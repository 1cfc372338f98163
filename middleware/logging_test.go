package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/unistudious/backend/models"
	"github.com/unistudious/backend/services/audit"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger_IncludesRequestAndPrincipal(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	user := models.NewUser("Ada", "Lovelace", "ada@example.com", models.RoleStudent)
	resolver := new(MockResolver)
	resolver.On("Resolve", mock.Anything, "token").Return(user, nil)
	auth := NewAuthMiddleware(resolver, "", zap.NewNop())

	handler := chimw.RequestID(RequestLogger(logger)(auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("ok"))
	}))))

	req := httptest.NewRequest(http.MethodPost, "/api/courses", nil)
	req.Header.Set("Authorization", "Bearer token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "request completed", entries[0].Message)
	assert.Equal(t, int64(http.StatusCreated), fields["status"])
	assert.Equal(t, "/api/courses", fields["path"])
	assert.Equal(t, user.ID.String(), fields["principal_id"])
	assert.NotEmpty(t, fields["request_id"])
}

func TestRequestLogger_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, logs.All(), 1)
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	_, hasPrincipal := entry.ContextMap()["principal_id"]
	assert.False(t, hasPrincipal)
}

func TestAuditMeta(t *testing.T) {
	var meta audit.RequestMeta
	var ok bool
	handler := AuditMeta(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meta, ok = audit.RequestMetaFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5555"
	req.Header.Set("User-Agent", "unistudious-mobile/1.0")
	req = req.WithContext(WithRequestID(context.Background(), "req-42"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.True(t, ok)
	assert.Equal(t, "req-42", meta.RequestID)
	assert.Equal(t, "10.0.0.7:5555", meta.IPAddress)
	assert.Equal(t, "unistudious-mobile/1.0", meta.UserAgent)
}

package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/subrelay/backend/internal/auth"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTService("s")
	token, err := jwt.GenerateToken(7, "eve", "viewer")
	require.NoError(t, err)

	var seen *auth.Claims
	h := AuthMiddleware(jwt)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetClaims(r)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	require.NotNil(t, seen)
	assert.Equal(t, int64(7), seen.UserID)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole("admin")(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	viewer := req.WithContext(WithClaims(req.Context(), &auth.Claims{Role: "viewer"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, viewer)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden"}`, rec.Body.String())

	admin := req.WithContext(WithClaims(req.Context(), &auth.Claims{Role: "admin"}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rl := NewRateLimiter(ctx, 2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := rl.Handler(ok)

	do := func(remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)
	limited := do("1.1.1.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "60", limited.Header().Get("Retry-After"))
	assert.Equal(t, http.StatusOK, do("2.2.2.2").Code)

	status := rl.Status()
	assert.Equal(t, 2, status.Limit)
	assert.Len(t, status.Entries, 2)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, do("1.1.1.1").Code)

	rl.Clear()
	assert.Empty(t, rl.Status().Entries)
}

func TestMaxBodySize(t *testing.T) {
	var readErr error
	h := MaxBodySize(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long"))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, readErr, &maxErr)
}

func TestLoggerTagsRequests(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := Logger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "part")
		w.(http.Flusher).Flush()
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/translate", nil))
	id := rec.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.True(t, rec.Flushed)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, "/api/translate", fields["path"])
	assert.Equal(t, int64(4), fields["bytes"])

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "given")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "given", rec.Header().Get(RequestIDHeader))
}

func TestCORSHandler(t *testing.T) {
	opts := CORSHandler(nil)
	assert.Equal(t, []string{"*"}, opts.AllowedOrigins)
	assert.False(t, opts.AllowCredentials)

	opts = CORSHandler([]string{" https://app.example.com/ ", ""}, "X-Failed-Groups")
	assert.Equal(t, []string{"https://app.example.com"}, opts.AllowedOrigins)
	assert.True(t, opts.AllowCredentials)
	assert.Contains(t, opts.ExposedHeaders, "X-Failed-Groups")
	assert.Contains(t, opts.ExposedHeaders, RequestIDHeader)
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer abc")
	token, msg := bearerToken(req)
	assert.Equal(t, "abc", token)
	assert.Empty(t, msg)

	req.Header.Set("Authorization", "Bearer ")
	_, msg = bearerToken(req)
	assert.Equal(t, "invalid authorization format", msg)
}

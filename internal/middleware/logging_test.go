package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-token-auth/internal/reqctx"
	"go-token-auth/internal/token"
)

// captureLog routes the default logger into a buffer for the test's duration.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func lastRequestLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var found map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(line, &entry))
		if msg, _ := entry["msg"].(string); msg == "request" || msg == "request denied" {
			found = entry
		}
	}
	require.NotNil(t, found, "no request line logged")
	return found
}

func TestLoggingSetsRequestID(t *testing.T) {
	var fromCtx string
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fromCtx = reqctx.RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	assert.Equal(t, rec.Header().Get(requestIDHeader), fromCtx)

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
		assert.Equal(t, "abc-123", fromCtx)
	})
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestLoggingRecordsAuthOutcome(t *testing.T) {
	f := newAuthFixture(t)
	chain := Logging(f.mw.Authenticate(f.mw.Authorize(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))))

	t.Run("forbidden principal", func(t *testing.T) {
		buf := captureLog(t)
		req := httptest.NewRequest(http.MethodGet, "/api/path/admin", nil)
		req.Header.Set("Authorization", "Bearer "+f.issue(t, "ROLE_USER", token.TypeAccess))

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		require.Equal(t, http.StatusForbidden, rec.Code)

		entry := lastRequestLine(t, buf)
		assert.Equal(t, "request denied", entry["msg"])
		assert.EqualValues(t, 7, entry["user_idx"])
		assert.Equal(t, "valid", entry["token_check"])
		assert.Equal(t, "forbidden", entry["authz"])
		assert.Equal(t, "role:ROLE_ADMIN", entry["access"])
		assert.Equal(t, "FORBIDDEN", entry["error_code"])
	})

	t.Run("expired token", func(t *testing.T) {
		buf := captureLog(t)
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+f.issue(t, "ROLE_USER", token.TypeAccess))
		f.now = f.now.Add(time.Hour)
		defer func() { f.now = f.now.Add(-time.Hour) }()

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		entry := lastRequestLine(t, buf)
		assert.NotContains(t, entry, "user_idx")
		assert.Equal(t, "expired", entry["token_check"])
		assert.Equal(t, "unauthenticated", entry["authz"])
	})

	t.Run("public path", func(t *testing.T) {
		buf := captureLog(t)

		rec := httptest.NewRecorder()
		chain.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		entry := lastRequestLine(t, buf)
		assert.Equal(t, "allow", entry["authz"])
		assert.Equal(t, "public", entry["access"])
		assert.NotContains(t, entry, "token_check")
	})
}

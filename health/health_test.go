package health

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthzAlwaysOK(t *testing.T) {
	s := New(":0", zap.NewNop())
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
	s.SetReady(true)
	assert.Equal(t, http.StatusOK, get(t, s, "/healthz").Code)
}

func TestReadyzFollowsBootstrap(t *testing.T) {
	s := New(":0", zap.NewNop())

	rec := get(t, s, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "setup in progress")

	s.SetReady(true)
	rec = get(t, s, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ready")

	s.SetReady(false)
	assert.Equal(t, http.StatusServiceUnavailable, get(t, s, "/readyz").Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := New(":0", zap.NewNop())
	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

package runtime

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewApplicationDefaultsToMemoryBackend(t *testing.T) {
	a, err := NewApplication("")
	if err != nil {
		t.Fatalf("NewApplication: %v", err)
	}

	rec := httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz = %d, want 200", rec.Code)
	}

	// protected routes reject anonymous requests through the full chain
	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/samples", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous samples = %d, want 401", rec.Code)
	}

	// metrics endpoint is mounted and public
	rec = httptest.NewRecorder()
	a.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics = %d, want 200", rec.Code)
	}
}

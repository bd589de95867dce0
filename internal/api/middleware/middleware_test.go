package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

func TestCORS(t *testing.T) {
	handler := CORS([]string{"https://bags.example.com"})(http.HandlerFunc(okHandler))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
		wantBody   string
	}{
		{"default origin", http.MethodGet, "http://localhost:5173", "http://localhost:5173", http.StatusOK, "ok"},
		{"extra origin", http.MethodGet, "https://bags.example.com", "https://bags.example.com", http.StatusOK, "ok"},
		{"unknown origin", http.MethodGet, "https://evil.example.com", "", http.StatusOK, "ok"},
		{"no origin", http.MethodGet, "", "*", http.StatusOK, "ok"},
		{"preflight", http.MethodOptions, "http://localhost:3000", "http://localhost:3000", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/v1/bot/status", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if w.Body.String() != tt.wantBody {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	handler := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"details":"boom"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestLogging_RequestID(t *testing.T) {
	handler := Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

		if w.Code != http.StatusCreated {
			t.Errorf("status = %d, want 201", w.Code)
		}
		if id := w.Header().Get(RequestIDHeader); len(id) != 26 {
			t.Errorf("request id = %q, want 26-char ULID", id)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if got := w.Header().Get(RequestIDHeader); got != "abc-123" {
			t.Errorf("request id = %q, want abc-123", got)
		}
	})
}

func TestResponseWriter_HijackUnsupported(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	if _, _, err := rw.Hijack(); err == nil {
		t.Error("expected error for recorder without Hijacker")
	}
}

func TestAllowedOrigins(t *testing.T) {
	got := AllowedOrigins([]string{" https://bags.example.com ", "", "http://localhost:3000"})

	if len(got) != len(defaultOrigins)+1 {
		t.Fatalf("len = %d, want %d: %v", len(got), len(defaultOrigins)+1, got)
	}
	if got[len(got)-1] != "https://bags.example.com" {
		t.Errorf("last origin = %q", got[len(got)-1])
	}
}

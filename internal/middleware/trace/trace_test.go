package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"famledger/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log.FromContext(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions?mode=year", nil))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request id %q is not a uuid", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Fatalf("response header %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	out := buf.String()
	for _, want := range []string{"HTTP request started", "status_code=418", "handler ran", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q", want)
		}
	}
	if m.GetMetrics().TotalRequests != 1 {
		t.Fatalf("TotalRequests = %d", m.GetMetrics().TotalRequests)
	}
}

func TestMiddleware_ReusesUpstreamID(t *testing.T) {
	m := NewMiddleware(log.New(log.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)}), nil)
	upstream := uuid.NewString()

	tests := []struct {
		header string
		reused bool
	}{
		{upstream, true},
		{"not-a-uuid", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, tt.header)
		rec := httptest.NewRecorder()
		m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

		if got := rec.Header().Get(HeaderRequestID) == tt.header; got != tt.reused {
			t.Errorf("header %q reused = %v, want %v", tt.header, got, tt.reused)
		}
	}
}

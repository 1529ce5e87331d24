package httpadapter

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/docchat/internal/core/domain"
)

type sessionFake struct {
	health  domain.HealthState
	docs    []domain.Document
	pending []string
	turns   int
}

func (f *sessionFake) Health() domain.HealthState { return f.health }
func (f *sessionFake) Documents() []domain.Document { return f.docs }
func (f *sessionFake) PendingDeletes() []string { return f.pending }
func (f *sessionFake) Transcript() []domain.TranscriptEntry {
	return make([]domain.TranscriptEntry, f.turns)
}
func (f *sessionFake) UploadStatus() *domain.UploadStatus { return nil }
func (f *sessionFake) Notification() *domain.Notification { return nil }
func (f *sessionFake) LastError() string { return "" }
func (f *sessionFake) Loading() bool { return false }
func (f *sessionFake) Uploading() bool { return false }
func (f *sessionFake) Sending() bool { return true }

func TestHealthzReportsBackendState(t *testing.T) {
	cases := []struct {
		health domain.HealthState
		code   int
		status string
	}{
		{health: domain.HealthHealthy, code: http.StatusOK, status: "ok"},
		{health: domain.HealthChecking, code: http.StatusOK, status: "ok"},
		{health: domain.HealthUnhealthy, code: http.StatusServiceUnavailable, status: "degraded"},
	}

	for _, tc := range cases {
		router := NewRouter(&sessionFake{health: tc.health}, nil, nil, nil)
		rec := httptest.NewRecorder()
		router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		if rec.Code != tc.code {
			t.Fatalf("health %s: expected %d, got %d", tc.health, tc.code, rec.Code)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body["status"] != tc.status || body["backend"] != string(tc.health) {
			t.Fatalf("health %s: unexpected body %v", tc.health, body)
		}
	}
}

func TestSessionSnapshot(t *testing.T) {
	session := &sessionFake{
		health:  domain.HealthHealthy,
		docs:    []domain.Document{{ID: "d1", Filename: "report.pdf"}},
		pending: []string{"d1"},
		turns:   4,
	}
	router := NewRouter(session, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/session", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap sessionSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(snap.Documents) != 1 || snap.Documents[0].ID != "d1" {
		t.Fatalf("unexpected documents: %+v", snap.Documents)
	}
	if len(snap.PendingDeletes) != 1 || snap.TranscriptTurns != 4 || !snap.Sending {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestRouterRejectsWrongMethod(t *testing.T) {
	router := NewRouter(&sessionFake{health: domain.HealthHealthy}, nil, nil, nil)

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/session", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestRequestIDIsEchoedOrGenerated(t *testing.T) {
	router := NewRouter(&sessionFake{health: domain.HealthHealthy}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected echoed request id, got %q", got)
	}

	rec = httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected generated request id")
	}
}

func TestUnsafeRequestIDIsReplaced(t *testing.T) {
	router := NewRouter(&sessionFake{health: domain.HealthHealthy}, nil, nil, nil)

	for _, id := range []string{"has space", "line\nbreak", strings.Repeat("a", maxRequestIDLength+1)} {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(requestIDHeader, id)
		rec := httptest.NewRecorder()
		router.Handler().ServeHTTP(rec, req)

		got := rec.Header().Get(requestIDHeader)
		if got == id || got == "" {
			t.Fatalf("expected generated id for %q, got %q", id, got)
		}
	}
}

func TestStatusRequestLogCarriesBackendHealth(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	router := NewRouter(&sessionFake{health: domain.HealthUnhealthy}, nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "probe-1")
	router.Handler().ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(logs.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", logs.String(), err)
	}
	if entry["msg"] != "status_request" || entry["level"] != "DEBUG" {
		t.Fatalf("unexpected log entry: %v", entry)
	}
	if entry["request_id"] != "probe-1" || entry["route"] != "/healthz" || entry["backend"] != "unhealthy" {
		t.Fatalf("unexpected log attributes: %v", entry)
	}
	if entry["status"] != float64(http.StatusServiceUnavailable) {
		t.Fatalf("expected status 503, got %v", entry["status"])
	}
}

func TestWrongMethodIsLoggedAsWarning(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	router := NewRouter(&sessionFake{health: domain.HealthHealthy}, nil, nil, logger)

	router.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/session", nil))

	if !strings.Contains(logs.String(), `"level":"WARN"`) || !strings.Contains(logs.String(), `"status":405`) {
		t.Fatalf("expected warning for 405, got %s", logs.String())
	}
}

func TestMetricsHandlerIsMounted(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("docchat_up 1\n"))
	})
	wrapped := false
	wrap := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped = true
			next.ServeHTTP(w, r)
		})
	}
	router := NewRouter(&sessionFake{health: domain.HealthHealthy}, metrics, wrap, nil)

	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Body.String() != "docchat_up 1\n" {
		t.Fatalf("unexpected metrics body %q", rec.Body.String())
	}
	if !wrapped {
		t.Fatalf("expected wrap middleware to run")
	}
}

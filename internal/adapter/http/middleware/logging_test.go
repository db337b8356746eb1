package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/infrastructure/logger"
	"github.com/iho/goescrow/internal/usecase"
)

func TestLoggingMiddleware_AttachesRequestScope(t *testing.T) {
	var buf bytes.Buffer
	mw := NewLoggingMiddleware(zerolog.New(&buf))

	var correlationID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID = usecase.CorrelationID(r.Context())
		log := logger.FromContext(r.Context(), zerolog.Nop())
		log.Info().Msg("inside handler")
		w.WriteHeader(http.StatusAccepted)
	})

	handler := chimw.RequestID(mw.Wrap(next))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/ledger/consistency", nil)
	req.Header.Set(chimw.RequestIDHeader, "req-42")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if correlationID != "req-42" {
		t.Fatalf("expected correlation id req-42, got %q", correlationID)
	}

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf.String())
	}

	for _, line := range lines {
		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("invalid log line %s: %v", line, err)
		}
		if entry["request_id"] != "req-42" {
			t.Fatalf("expected request_id on every line, got %v", entry)
		}
	}

	var completed map[string]any
	_ = json.Unmarshal(lines[1], &completed)
	if completed["status"] != float64(http.StatusAccepted) {
		t.Fatalf("expected status 202, got %v", completed["status"])
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	var buf bytes.Buffer
	handler := Recovery(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if !bytes.Contains(buf.Bytes(), []byte("panic recovered")) {
		t.Fatalf("expected panic to be logged, got %s", buf.String())
	}

	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected json body, got %q: %v", rr.Body.String(), err)
	}
	if body["code"] != "INTERNAL" {
		t.Fatalf("expected INTERNAL code, got %v", body)
	}
}

func TestLoggingMiddleware_LevelByOutcome(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status int
		level  string
	}{
		{"health check is quiet", "/health", http.StatusOK, "debug"},
		{"failing readiness check is not quiet", "/ready", http.StatusServiceUnavailable, "error"},
		{"client error", "/api/v1/accounts/x/balance", http.StatusBadRequest, "warn"},
		{"success", "/api/v1/accounts/x/balance", http.StatusOK, "info"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			mw := NewLoggingMiddleware(zerolog.New(&buf), "/health", "/ready")

			handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, tt.path, nil))

			var entry map[string]any
			if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
				t.Fatalf("invalid log line %s: %v", buf.String(), err)
			}
			if entry["level"] != tt.level {
				t.Fatalf("expected level %s, got %v", tt.level, entry["level"])
			}
		})
	}
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	handler := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}

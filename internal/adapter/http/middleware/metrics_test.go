package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newInstrumentedRouter(t *testing.T) (*HTTPMetrics, http.Handler) {
	t.Helper()

	m := NewHTTPMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Wrap)
	r.Get("/api/v1/accounts/{key}/balance", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("0123456789"))
	})
	r.Post("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	return m, r
}

func TestHTTPMetricsLabelsByRoute(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		route  string
		status string
	}{
		{"parameterized route", http.MethodGet, "/api/v1/accounts/ESCROW:deal-1/balance", "/api/v1/accounts/{key}/balance", "418"},
		{"implicit 200", http.MethodPost, "/health", "/health", "200"},
		{"unmatched route", http.MethodGet, "/nope", "unmatched", "404"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, router := newInstrumentedRouter(t)

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(tt.method, tt.route, tt.status)))
			assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
		})
	}
}

func TestHTTPMetricsObservesResponseSize(t *testing.T) {
	m, router := newInstrumentedRouter(t)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/accounts/ESCROW:deal-1/balance", nil))

	assert.Equal(t, 1, testutil.CollectAndCount(m.responseBytes))
}

func TestRoutePatternWithoutRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/x", nil)
	assert.Equal(t, "unmatched", routePattern(req))
}

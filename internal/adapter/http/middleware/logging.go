package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/usecase"
)

// LoggingMiddleware logs HTTP requests and hands a request-scoped logger to
// handlers through the context.
type LoggingMiddleware struct {
	logger zerolog.Logger
	quiet  map[string]bool
}

// NewLoggingMiddleware creates a LoggingMiddleware. Successful requests to
// quietPaths, such as health checks, are logged at debug level.
func NewLoggingMiddleware(logger zerolog.Logger, quietPaths ...string) *LoggingMiddleware {
	quiet := make(map[string]bool, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = true
	}
	return &LoggingMiddleware{logger: logger, quiet: quiet}
}

// Wrap wraps an http.Handler with logging. The chi request ID doubles as the
// correlation ID of events emitted while serving the request.
func (m *LoggingMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLogger := m.logger
		ctx := r.Context()
		if reqID := chimw.GetReqID(ctx); reqID != "" {
			reqLogger = reqLogger.With().Str("request_id", reqID).Logger()
			ctx = usecase.WithCorrelationID(ctx, reqID)
		}
		ctx = reqLogger.WithContext(ctx)

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLogger.Error()
		case status >= http.StatusBadRequest:
			event = reqLogger.Warn()
		case m.quiet[r.URL.Path]:
			event = reqLogger.Debug()
		default:
			event = reqLogger.Info()
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("request completed")
	})
}

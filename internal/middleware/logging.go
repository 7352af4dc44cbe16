package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/readlingo/bookreader/pkg/logger"
)

// LoggingMiddleware assigns trace IDs and logs every request.
type LoggingMiddleware struct {
	log *logger.Logger
}

// NewLoggingMiddleware creates a request logging middleware.
func NewLoggingMiddleware(log *logger.Logger) *LoggingMiddleware {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return &LoggingMiddleware{log: log}
}

// Handler returns the logging middleware handler.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-ID")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		ctx := WithTraceID(r.Context(), traceID)
		// The user slot is filled downstream by the auth middleware.
		ctx = WithUserScope(ctx)
		w.Header().Set("X-Trace-ID", traceID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rw, r.WithContext(ctx))

		entry := m.log.
			WithField("trace_id", traceID).
			WithField("method", r.Method).
			WithField("path", r.URL.Path).
			WithField("status", rw.statusCode).
			WithField("duration_ms", time.Since(start).Milliseconds())
		if userID := GetUserID(ctx); userID != "" {
			entry = entry.WithField("user_id", userID)
		}
		if rw.statusCode >= 500 {
			entry.Error("request failed")
		} else {
			entry.Info("request handled")
		}
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

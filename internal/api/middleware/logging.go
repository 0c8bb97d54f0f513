package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader carries the per-request id, generated unless the client sent one.
const RequestIDHeader = "X-Request-ID"

type wrappedWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int64
}

func (w *wrappedWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *wrappedWriter) Write(p []byte) (int, error) {
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

// Flush lets streamed translations reach the client group by group.
func (w *wrappedWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *wrappedWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// silentPaths are high-frequency polling endpoints that are only logged on errors (status >= 400).
var silentPaths = map[string]bool{
	"/api/health": true,
}

// Logger writes one access log line per request and tags the response with a request id.
func Logger(logger *zap.Logger) func(http.Handler) http.Handler {
	logger = logger.With(zap.String("component", "http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			reqID := r.Header.Get(RequestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, reqID)

			wrapped := &wrappedWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)
			if silentPaths[r.URL.Path] && wrapped.statusCode < 400 {
				return
			}

			fields := []zap.Field{
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", wrapped.statusCode),
				zap.Int64("bytes", wrapped.bytes),
				zap.Duration("duration", time.Since(start)),
			}
			if wrapped.statusCode >= 500 {
				logger.Error("request", fields...)
				return
			}
			logger.Info("request", fields...)
		})
	}
}

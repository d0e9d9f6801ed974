package middleware

import (
	"log"
	"net/http"
	"time"

	"mobile-workforce/backend/internal/telemetry"
	otelemitter "mobile-workforce/backend/internal/telemetry/otel"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// Logging logs each request and emits an auth event per response. emitter may
// be nil. It also stamps the client IP on the request context for auditing.
func Logging(emitter telemetry.EventEmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			r = r.WithContext(WithClientIP(r.Context(), r))
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			log.Printf("http %s %s %d %dB %.1fms %s",
				r.Method, r.URL.Path, status, lrw.size,
				float64(dur.Microseconds())/1000.0, GetClientIP(r.Context()))
			otelemitter.EmitAsync(emitter, &telemetry.AuthEvent{
				EventType: "http_request",
				Path:      r.URL.Path,
				Status:    status,
				Duration:  dur,
				CreatedAt: start.UTC(),
			})
		})
	}
}

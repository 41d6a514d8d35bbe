package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/smartbite/assistant/backend/internal/logger"
)

// RequestLogger logs failed or slow requests at warn and everything else at
// debug, so production output stays quiet for healthy traffic.
func RequestLogger(log *logger.Logger, slow time.Duration) func(http.Handler) http.Handler {
	log = log.With("component", "http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				// hijacked (websocket) or nothing written
				status = http.StatusOK
			}
			latency := time.Since(start)
			kv := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"latency", latency,
				"bytes", ww.BytesWritten(),
				"requestId", chimw.GetReqID(r.Context()),
			}

			switch {
			case status >= http.StatusInternalServerError:
				log.Error("request failed", kv...)
			case status >= http.StatusBadRequest:
				log.Warn("request rejected", kv...)
			case slow > 0 && latency >= slow && !streaming(r):
				log.Warn("slow request", kv...)
			default:
				log.Debug("request", kv...)
			}
		})
	}
}

// Event streams and sockets stay open for the widget's lifetime.
func streaming(r *http.Request) bool {
	return r.Header.Get("Upgrade") != "" || r.Header.Get("Accept") == "text/event-stream"
}

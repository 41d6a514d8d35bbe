package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// SetupSSEHeaders prepares an event-stream response. CORS is left to the
// router middleware.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// SendSSEEvent writes one named event and flushes it. It reports whether the
// write reached the client.
func SendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) bool {
	payload, err := json.Marshal(data)
	if err != nil {
		zap.S().Warnw("failed to marshal sse event", "event", event, "error", err)
		return true
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

// SendSSEComment writes a keep-alive comment line.
func SendSSEComment(w http.ResponseWriter, flusher http.Flusher, comment string) bool {
	if _, err := fmt.Fprintf(w, ": %s\n\n", comment); err != nil {
		return false
	}
	flusher.Flush()
	return true
}

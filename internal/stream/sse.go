package stream

import (
	"fmt"
	"io"
	"net/http"
)

const (
	reloadFrame    = "data: reload\n\n"
	keepAliveFrame = ": keep-alive\n\n"

	// retryMillis is how long EventSource waits before reconnecting.
	retryMillis = 1000
)

// ServeSSE streams events as text/event-stream until the viewer goes away
// or the server shuts down. Heartbeats are SSE comments, which EventSource
// never surfaces to onmessage.
func (m *Multiplexer) ServeSSE(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc := http.NewResponseController(w)

	events, release, err := m.Events(ctx)
	if err != nil {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}
	defer release()

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		m.logger.Warn(ctx, err, "response does not support streaming")
		return
	}

	m.logger.Debug(ctx, "viewer connected", "transport", "sse", "remote", r.RemoteAddr)

	for event := range events {
		frame := keepAliveFrame
		if event.Kind == EventReload {
			frame = reloadFrame
		}

		if _, err := io.WriteString(w, frame); err != nil {
			break
		}
		if err := rc.Flush(); err != nil {
			break
		}
	}

	m.logger.Debug(ctx, "viewer disconnected", "transport", "sse", "remote", r.RemoteAddr)
}

package stream

import (
	"context"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/coder/websocket"
)

const writeWait = 10 * time.Second

// ServeWebSocket streams events over a WebSocket: a reload is a text frame
// containing "reload" and a heartbeat is a ping.
func (m *Multiplexer) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	if !m.checkOrigin(r) {
		http.Error(w, "Origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: m.allowedOrigins,
	})
	if err != nil {
		m.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	defer conn.CloseNow()

	// Viewers never send anything; CloseRead handles control frames and
	// cancels ctx when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, release, err := m.Events(ctx)
	if err != nil {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	defer release()

	m.logger.Debug(ctx, "viewer connected", "transport", "websocket", "remote", r.RemoteAddr)

	for event := range events {
		if err := m.writeEvent(ctx, conn, event); err != nil {
			m.logger.Debug(ctx, "viewer disconnected", "transport", "websocket", "remote", r.RemoteAddr)
			return
		}
	}

	_ = conn.Close(websocket.StatusGoingAway, "stream closed")
}

func (m *Multiplexer) writeEvent(ctx context.Context, conn *websocket.Conn, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeWait)
	defer cancel()

	if event.Kind == EventHeartbeat {
		return conn.Ping(ctx)
	}
	return conn.Write(ctx, websocket.MessageText, []byte("reload"))
}

// checkOrigin validates the request origin for security. The origin must be
// an http(s) URL for the host the viewer loaded the page from or one of the
// configured extra origins.
func (m *Multiplexer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	return originURL.Host == r.Host || slices.Contains(m.allowedOrigins, originURL.Host)
}

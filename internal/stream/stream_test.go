package stream

import (
	"bufio"
	"context"
	"iter"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/marklive/internal/notify"
)

const heartbeat = 15 * time.Second

func newMultiplexer(t *testing.T) (*Multiplexer, *notify.Notifier, *clockwork.FakeClock) {
	t.Helper()
	n := notify.New(16)
	t.Cleanup(n.Close)
	clock := clockwork.NewFakeClock()
	return New(n, Options{Heartbeat: heartbeat, Clock: clock}), n, clock
}

// collect ranges over seq in the background.
func collect(seq iter.Seq[Event]) <-chan Event {
	out := make(chan Event, 64)
	go func() {
		defer close(out)
		for ev := range seq {
			out <- ev
		}
	}()
	return out
}

func next(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream ended")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
		return Event{}
	}
}

func waitEnded(t *testing.T, events <-chan Event) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not end")
		}
	}
}

func publish(n *notify.Notifier, version uint64) {
	n.Publish(notify.Signal{Kind: notify.SignalChanged, Version: version})
}

func TestEventKindString(t *testing.T) {
	assert.Equal(t, "reload", EventReload.String())
	assert.Equal(t, "heartbeat", EventHeartbeat.String())
	assert.Equal(t, "unknown", EventKind(7).String())
}

func TestEventsEmitsReload(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	seq, release, err := m.Events(context.Background())
	require.NoError(t, err)
	defer release()
	events := collect(seq)

	publish(n, 2)
	assert.Equal(t, Event{Kind: EventReload, Version: 2}, next(t, events))

	publish(n, 3)
	assert.Equal(t, Event{Kind: EventReload, Version: 3}, next(t, events))
}

func TestEventsHeartbeatWhenIdle(t *testing.T) {
	m, n, clock := newMultiplexer(t)

	seq, release, err := m.Events(context.Background())
	require.NoError(t, err)
	defer release()
	events := collect(seq)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	clock.Advance(heartbeat)
	assert.Equal(t, EventHeartbeat, next(t, events).Kind)

	publish(n, 2)
	assert.Equal(t, EventReload, next(t, events).Kind)

	select {
	case ev := <-events:
		t.Fatalf("unexpected event %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventsCoalesceToLatest(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	seq, release, err := m.Events(context.Background())
	require.NoError(t, err)
	defer release()

	for v := uint64(2); v <= 51; v++ {
		publish(n, v)
	}

	events := collect(seq)
	assert.Equal(t, Event{Kind: EventReload, Version: 51}, next(t, events))

	select {
	case ev := <-events:
		t.Fatalf("expected one reload for the whole burst, got %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEventsEndOnContextCancel(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	ctx, cancel := context.WithCancel(context.Background())
	seq, _, err := m.Events(ctx)
	require.NoError(t, err)
	events := collect(seq)
	assert.Equal(t, 1, n.Len())

	cancel()
	waitEnded(t, events)
	assert.Equal(t, 0, n.Len())
}

func TestEventsEndOnNotifierClose(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	seq, _, err := m.Events(context.Background())
	require.NoError(t, err)
	events := collect(seq)

	n.Close()
	waitEnded(t, events)

	_, _, err = m.Events(context.Background())
	assert.ErrorIs(t, err, notify.ErrClosed)
}

func TestEventsReleaseWithoutRanging(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	_, release, err := m.Events(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n.Len())

	release()
	release()
	assert.Equal(t, 0, n.Len())
}

func TestClosingOneStreamDoesNotInterruptAnother(t *testing.T) {
	m, n, _ := newMultiplexer(t)

	ctxA, cancelA := context.WithCancel(context.Background())
	seqA, _, err := m.Events(ctxA)
	require.NoError(t, err)
	a := collect(seqA)

	seqB, releaseB, err := m.Events(context.Background())
	require.NoError(t, err)
	defer releaseB()
	b := collect(seqB)

	publish(n, 2)
	next(t, a)
	next(t, b)

	cancelA()
	waitEnded(t, a)

	publish(n, 3)
	assert.Equal(t, Event{Kind: EventReload, Version: 3}, next(t, b))
}

// sseLines reads the response body line by line in the background.
func sseLines(t *testing.T, resp *http.Response) <-chan string {
	t.Helper()
	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		reader := bufio.NewReader(resp.Body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			lines <- strings.TrimRight(line, "\n")
		}
	}()
	return lines
}

func nextLine(t *testing.T, lines <-chan string) string {
	t.Helper()
	for {
		select {
		case line, ok := <-lines:
			require.True(t, ok, "stream closed")
			if line == "" {
				continue
			}
			return line
		case <-time.After(2 * time.Second):
			t.Fatal("no line")
			return ""
		}
	}
}

func openSSE(t *testing.T, ctx context.Context, url string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeSSE(t *testing.T) {
	m, n, clock := newMultiplexer(t)
	srv := httptest.NewServer(http.HandlerFunc(m.ServeSSE))
	// Registered before the response bodies so they close first.
	t.Cleanup(srv.Close)

	resp := openSSE(t, context.Background(), srv.URL)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))

	lines := sseLines(t, resp)
	assert.Equal(t, "retry: 1000", nextLine(t, lines))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(heartbeat)
	assert.Equal(t, ": keep-alive", nextLine(t, lines))

	publish(n, 2)
	assert.Equal(t, "data: reload", nextLine(t, lines))
}

func TestServeSSEViewerDisconnect(t *testing.T) {
	m, n, _ := newMultiplexer(t)
	srv := httptest.NewServer(http.HandlerFunc(m.ServeSSE))
	t.Cleanup(srv.Close)

	ctxA, cancelA := context.WithCancel(context.Background())
	respA := openSSE(t, ctxA, srv.URL)
	linesA := sseLines(t, respA)
	nextLine(t, linesA)

	respB := openSSE(t, context.Background(), srv.URL)
	linesB := sseLines(t, respB)
	nextLine(t, linesB)

	require.Eventually(t, func() bool { return n.Len() == 2 }, time.Second, 5*time.Millisecond)

	cancelA()
	require.Eventually(t, func() bool { return n.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	publish(n, 2)
	assert.Equal(t, "data: reload", nextLine(t, linesB))
}

func TestServeSSEEndsOnShutdown(t *testing.T) {
	m, n, _ := newMultiplexer(t)
	srv := httptest.NewServer(http.HandlerFunc(m.ServeSSE))
	t.Cleanup(srv.Close)

	resp := openSSE(t, context.Background(), srv.URL)
	lines := sseLines(t, resp)
	nextLine(t, lines)

	n.Close()

	select {
	case _, ok := <-lines:
		for ok {
			_, ok = <-lines
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not end on shutdown")
	}

	after := openSSE(t, context.Background(), srv.URL)
	assert.Equal(t, http.StatusServiceUnavailable, after.StatusCode)
}

func TestServeWebSocket(t *testing.T) {
	m, n, _ := newMultiplexer(t)
	srv := httptest.NewServer(http.HandlerFunc(m.ServeWebSocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", srv.URL)
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{
		HTTPHeader: header,
	})
	require.NoError(t, err)
	defer conn.CloseNow()

	require.Eventually(t, func() bool { return n.Len() == 1 }, time.Second, 5*time.Millisecond)

	publish(n, 2)

	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)
	assert.Equal(t, "reload", string(data))

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	require.Eventually(t, func() bool { return n.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestServeWebSocketRejectsForeignOrigin(t *testing.T) {
	m, n, _ := newMultiplexer(t)
	srv := httptest.NewServer(http.HandlerFunc(m.ServeWebSocket))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	header.Set("Origin", "http://evil.example.com")
	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), &websocket.DialOptions{
		HTTPHeader: header,
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 0, n.Len())
}

func TestCheckOrigin(t *testing.T) {
	m := New(notify.New(1), Options{AllowedOrigins: []string{"localhost:3030"}})

	testCases := []struct {
		name   string
		origin string
		want   bool
	}{
		{"same host", "http://127.0.0.1:3030", true},
		{"allowed extra", "http://localhost:3030", true},
		{"https same host", "https://127.0.0.1:3030", true},
		{"missing", "", false},
		{"other host", "http://example.com", false},
		{"other port", "http://127.0.0.1:9999", false},
		{"bad scheme", "file://127.0.0.1:3030", false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3030/ws", nil)
			if tc.origin != "" {
				r.Header.Set("Origin", tc.origin)
			}
			assert.Equal(t, tc.want, m.checkOrigin(r))
		})
	}
}

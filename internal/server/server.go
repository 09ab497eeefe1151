// Package server exposes the live document over HTTP: the rendered page at
// /, its change stream at /events (SSE) and /ws (WebSocket), and /health.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/conneroisu/marklive/internal/browser"
	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/errors"
	"github.com/conneroisu/marklive/internal/logging"
	"github.com/conneroisu/marklive/internal/notify"
	"github.com/conneroisu/marklive/internal/page"
	"github.com/conneroisu/marklive/internal/store"
	"github.com/conneroisu/marklive/internal/stream"
	"github.com/conneroisu/marklive/internal/watcher"
)

// Dependencies are the collaborators a PreviewServer serves. Cache,
// Notifier and Stream are required.
type Dependencies struct {
	Cache    *store.Cache
	Notifier *notify.Notifier
	Stream   *stream.Multiplexer
	// Watcher is nil for ephemeral sources.
	Watcher *watcher.Watcher
	Assets  *page.Assets
	CodeCSS string
	Logger  logging.Logger
	// OpenBrowser defaults to browser.Open.
	OpenBrowser func(url string) error
}

// PreviewServer serves one live document.
type PreviewServer struct {
	config   *config.Config
	cache    *store.Cache
	notifier *notify.Notifier
	stream   *stream.Multiplexer
	watcher  *watcher.Watcher
	assets   *page.Assets
	codeCSS  string
	logger   logging.Logger
	open     func(url string) error

	router    chi.Router
	startedAt time.Time

	serverMutex sync.RWMutex // Protects httpServer, listener and isShutdown
	httpServer  *http.Server
	listener    net.Listener
	isShutdown  bool

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a preview server. Nothing is bound until Listen or Start.
func New(cfg *config.Config, deps Dependencies) *PreviewServer {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	open := deps.OpenBrowser
	if open == nil {
		open = browser.Open
	}
	assets := deps.Assets
	if assets == nil {
		assets = page.DefaultAssets()
	}

	s := &PreviewServer{
		config:    cfg,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		stream:    deps.Stream,
		watcher:   deps.Watcher,
		assets:    assets,
		codeCSS:   deps.CodeCSS,
		logger:    logger.WithComponent("server"),
		open:      open,
		startedAt: time.Now(),
	}
	s.router = s.routes()
	return s
}

func (s *PreviewServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)

	r.Get("/", s.handleIndex)
	r.Get(page.EventsPath, s.stream.ServeSSE)
	r.Get("/ws", s.stream.ServeWebSocket)
	r.Get("/health", s.handleHealth)

	return r
}

// Handler returns the HTTP handler with every route and middleware.
func (s *PreviewServer) Handler() http.Handler {
	return s.router
}

// Listen binds the configured address. Failing to bind is fatal at startup.
func (s *PreviewServer) Listen() (net.Listener, error) {
	addr := s.config.Address()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeBind, fmt.Sprintf("cannot listen on %s", addr), err)
	}

	s.serverMutex.Lock()
	s.listener = ln
	s.serverMutex.Unlock()

	return ln, nil
}

// Start binds the listener and serves until Shutdown.
func (s *PreviewServer) Start(ctx context.Context) error {
	ln, err := s.Listen()
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve runs the watcher and serves HTTP on ln until Shutdown. It returns
// nil after a clean shutdown.
func (s *PreviewServer) Serve(ctx context.Context, ln net.Listener) error {
	s.serverMutex.Lock()
	if s.isShutdown {
		s.serverMutex.Unlock()
		_ = ln.Close()
		return nil
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server := s.httpServer // Get local copy for safe access
	s.serverMutex.Unlock()

	if s.watcher != nil {
		go func() {
			if err := s.watcher.Run(ctx); err != nil {
				s.logger.Error(ctx, err, "file watcher stopped")
			}
		}()
	}

	url := s.URL()
	s.logger.Info(ctx, "serving document", "url", url, "document", s.cache.Read().Name)

	if s.config.Server.Open {
		go func() {
			if err := s.open(url); err != nil {
				s.logger.Warn(ctx, err, "failed to open browser", "url", url)
			}
		}()
	}

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return errors.NewNetworkError(errors.ErrCodeServe, "server error", err)
	}
	return nil
}

// URL returns the address a local browser should load. Wildcard hosts are
// reached through the loopback interface.
func (s *PreviewServer) URL() string {
	host := s.config.Server.Host
	port := s.config.Server.Port

	s.serverMutex.RLock()
	if s.listener != nil {
		if tcp, ok := s.listener.Addr().(*net.TCPAddr); ok {
			port = tcp.Port
		}
	}
	s.serverMutex.RUnlock()

	if browser.IsWildcard(host) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Shutdown ends every viewer stream, stops the watcher and shuts down the
// HTTP server. Only the first call does anything; later calls return the
// first call's result.
func (s *PreviewServer) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "shutting down")

		s.serverMutex.Lock()
		s.isShutdown = true
		server := s.httpServer
		s.serverMutex.Unlock()

		// Closing the notifier ends every open stream so the HTTP server
		// is not left waiting on them.
		s.notifier.Close()

		if s.watcher != nil {
			if err := s.watcher.Close(); err != nil {
				s.logger.Warn(ctx, err, "closing file watcher")
			}
		}

		if server != nil {
			s.shutdownErr = server.Shutdown(ctx)
		}
	})

	return s.shutdownErr
}

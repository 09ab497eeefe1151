package cmd

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/marklive/internal/browser"
	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/errors"
	"github.com/conneroisu/marklive/internal/logging"
	"github.com/conneroisu/marklive/internal/notify"
	"github.com/conneroisu/marklive/internal/page"
	"github.com/conneroisu/marklive/internal/renderer"
	"github.com/conneroisu/marklive/internal/server"
	"github.com/conneroisu/marklive/internal/source"
	"github.com/conneroisu/marklive/internal/store"
	"github.com/conneroisu/marklive/internal/stream"
	"github.com/conneroisu/marklive/internal/watcher"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:     "serve [FILE]",
	Aliases: []string{"s"},
	Short:   "Preview a Markdown document with live reload",
	Long: `Render a Markdown document and serve it over HTTP. Every open tab
reloads when the file changes on disk.

Without FILE the document is read from stdin. With --clipboard it is read
from the system clipboard. Both are rendered once and never watched.

Examples:
  marklive serve README.md
  marklive serve docs/guide.md --host 0.0.0.0 --port 8000
  marklive serve notes.md --watch-mode poll --poll-interval 1s
  marklive serve --clipboard --no-open`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addServerFlags(serveCmd.Flags())
	addWatchFlags(serveCmd.Flags())
	serveCmd.Flags().BoolP("clipboard", "C", false, "Read the document from the clipboard")

	bindFlags(viper.GetViper(), serveCmd.Flags(), serverFlagBindings)
	bindFlags(viper.GetViper(), serveCmd.Flags(), watchFlagBindings)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.SourcePath = args[0]
	}
	cfg.Clipboard, _ = cmd.Flags().GetBool("clipboard")

	logger, err := newLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	doc, err := source.Load(source.Options{
		Path:      cfg.SourcePath,
		Clipboard: cfg.Clipboard,
		Stdin:     cmd.InOrStdin(),
	})
	if err != nil {
		return errors.NewEnhancedError("Failed to read the document", err, errors.SourceError(err, cfg.SourcePath))
	}

	srv, err := newPreviewServer(cfg, doc, logger)
	if err != nil {
		return err
	}

	ln, err := srv.Listen()
	if err != nil {
		return errors.NewEnhancedError(
			fmt.Sprintf("Failed to start server on %s", cfg.Address()),
			err,
			errors.ServerStartError(err, cfg.Server.Host, cfg.Server.Port),
		)
	}

	printBanner(cmd.OutOrStdout(), cfg, doc, srv.URL(), ln)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-sigChan:
		case <-ctx.Done():
			return
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, err, "shutdown did not complete")
		}
		cancel()
	}()

	err = srv.Serve(ctx, ln)
	if err != nil {
		cancel()
	}
	<-stopped
	return err
}

// newPreviewServer renders the initial document and wires the cache,
// notifier, watcher and stream around it. Nothing is served yet.
func newPreviewServer(cfg *config.Config, doc source.Document, logger logging.Logger) (*server.PreviewServer, error) {
	r := renderer.New(renderer.Options{
		HardWraps: cfg.Render.HardWraps,
		Sanitize:  cfg.Render.Sanitize,
		Highlight: cfg.Render.Highlight,
		Style:     cfg.Render.Style,
	})

	html, err := r.Render(doc.Text)
	if err != nil {
		return nil, fmt.Errorf("rendering %s: %w", doc.Name, err)
	}

	assets, err := page.LoadAssets(cfg.Page.CSS, cfg.Page.Favicon, cfg.Page.Fonts)
	if err != nil {
		return nil, errors.NewEnhancedError("Failed to load page assets", err,
			errors.ConfigurationError(err.Error(), viper.ConfigFileUsed()))
	}

	notifier := notify.New(cfg.Stream.Mailbox)
	cache := store.New(doc.Name, html, notifier)

	var w *watcher.Watcher
	if !doc.Target.IsEphemeral() {
		w = watcher.New(doc.Target, &watcher.FileReloader{
			Path:     doc.Target.Path,
			Name:     doc.Name,
			Renderer: r,
			Cache:    cache,
			Logger:   logger.WithComponent("watcher"),
		}, watcher.Options{
			Mode:         cfg.Watch.Mode,
			PollInterval: cfg.Watch.PollInterval,
			Debounce:     cfg.Watch.Debounce,
			Logger:       logger,
		})
	}

	return server.New(cfg, server.Dependencies{
		Cache:    cache,
		Notifier: notifier,
		Stream: stream.New(notifier, stream.Options{
			Heartbeat:      cfg.Stream.Heartbeat,
			Logger:         logger,
			AllowedOrigins: cfg.Server.AllowedOrigins,
		}),
		Watcher: w,
		Assets:  assets,
		CodeCSS: r.Stylesheet(),
		Logger:  logger,
	}), nil
}

func newLogger(cfg *config.Config, out io.Writer) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.NewEnhancedError("Invalid log level", err,
			errors.ConfigurationError(err.Error(), viper.ConfigFileUsed()))
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: out,
	}), nil
}

// watchModeLabel names the detector the watcher starts with, keeping the
// configured mode alongside when auto picked it.
func watchModeLabel(mode string) string {
	resolved, err := watcher.ResolveMode(mode)
	if err != nil {
		return mode
	}
	if resolved != mode {
		return resolved + ", " + mode
	}
	return resolved
}

// printBanner tells the user where the document is served. A wildcard
// host also gets the machine's LAN address so other devices can connect.
func printBanner(out io.Writer, cfg *config.Config, doc source.Document, url string, ln net.Listener) {
	fmt.Fprintf(out, "Serving %s\n", doc.Name)
	fmt.Fprintf(out, "  Local:   %s\n", url)

	if browser.IsWildcard(cfg.Server.Host) {
		if addr, err := browser.LANAddress(); err == nil {
			port := cfg.Server.Port
			if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
				port = tcp.Port
			}
			fmt.Fprintf(out, "  Network: http://%s\n", net.JoinHostPort(addr, strconv.Itoa(port)))
		}
	}

	if doc.Target.IsEphemeral() {
		fmt.Fprintln(out, "  Watching: disabled")
	} else {
		fmt.Fprintf(out, "  Watching: %s (%s)\n", doc.Target.Path, watchModeLabel(cfg.Watch.Mode))
	}
	fmt.Fprintln(out, "Press Ctrl+C to stop")
}

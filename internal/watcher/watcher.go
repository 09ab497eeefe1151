// Package watcher keeps the rendered document in step with its source file.
//
// A Detector reports raw changes, a Debouncer folds bursts (editors often
// write a file several times per save) into one, and the Watcher calls a
// Reloader for every burst. When native notification fails at runtime the
// Watcher switches to polling; when polling fails too the document stays
// static.
package watcher

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/conneroisu/marklive/internal/config"
	"github.com/conneroisu/marklive/internal/errors"
	"github.com/conneroisu/marklive/internal/logging"
	"github.com/conneroisu/marklive/internal/source"
	"github.com/conneroisu/marklive/internal/store"
)

// ModeNone is reported for ephemeral sources.
const ModeNone = "none"

// Reloader refreshes the document after a change burst.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Options configure a Watcher. Zero values take the config defaults.
type Options struct {
	Mode         string
	PollInterval time.Duration
	Debounce     time.Duration
	Clock        clockwork.Clock
	Logger       logging.Logger

	// Detector replaces Select when set.
	Detector Detector
}

// Watcher runs one detector for one target.
type Watcher struct {
	target   source.Target
	reloader Reloader
	opts     Options
	logger   logging.Logger

	mu       sync.Mutex
	detector Detector
	closed   bool
}

// New creates a watcher. Nothing is observed until Run.
func New(target source.Target, reloader Reloader, opts Options) *Watcher {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = config.DefaultPollInterval
	}
	if opts.Mode == "" {
		opts.Mode = config.WatchModeAuto
	}

	return &Watcher{
		target:   target,
		reloader: reloader,
		opts:     opts,
		logger:   opts.Logger.WithComponent("watcher"),
	}
}

// Mode returns the active detector's name, or ModeNone.
func (w *Watcher) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.detector == nil {
		return ModeNone
	}
	return w.detector.Name()
}

// Run observes the target until ctx is cancelled or Close is called. It
// returns nil in both cases and also when no detector can be kept running;
// the error result is reserved for an invalid watch mode.
func (w *Watcher) Run(ctx context.Context) error {
	if w.target.IsEphemeral() {
		w.logger.Debug(ctx, "ephemeral source, not watching")
		return nil
	}

	detector := w.opts.Detector
	if detector == nil {
		var err error
		detector, err = Select(w.opts.Mode, w.target.Path, SelectOptions{
			PollInterval: w.opts.PollInterval,
			Clock:        w.opts.Clock,
			Logger:       w.logger,
		})
		if err != nil {
			return err
		}
	}
	if !w.setDetector(detector) {
		return nil
	}
	defer w.closeDetector()

	w.logger.Info(ctx, "watching for changes", "path", w.target.Path, "mode", detector.Name())

	debouncer := NewDebouncer(w.opts.Debounce, w.opts.Clock)
	defer debouncer.Stop()

	changes := make(chan Change, 16)
	failed := make(chan error, 1)
	start := func(d Detector) {
		go func() { failed <- d.Run(ctx, changes) }()
	}
	start(detector)

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-changes:
			w.logger.Debug(ctx, "change detected", "path", c.Path, "type", c.Type.String())
			debouncer.Add(c)

		case <-debouncer.C():
			w.reload(ctx)

		case err := <-failed:
			if ctx.Err() != nil || err == nil {
				return nil
			}

			if detector.Name() == "poll" {
				w.logger.Error(ctx, err, "cannot watch source, the document will not update", "path", w.target.Path)
				return nil
			}

			w.logger.Warn(ctx, err, "native file watch failed, falling back to polling", "path", w.target.Path)
			_ = detector.Close()
			detector = NewPollDetector(w.target.Path, w.opts.PollInterval, w.opts.Clock)
			if !w.setDetector(detector) {
				return nil
			}
			start(detector)
		}
	}
}

// Close stops the active detector and releases its OS handle.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	if w.detector != nil {
		return w.detector.Close()
	}
	return nil
}

func (w *Watcher) setDetector(d Detector) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		_ = d.Close()
		return false
	}
	w.detector = d
	return true
}

func (w *Watcher) closeDetector() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.detector != nil {
		_ = w.detector.Close()
	}
}

func (w *Watcher) reload(ctx context.Context) {
	err := w.reloader.Reload(ctx)
	if err == nil {
		return
	}

	if errors.IsRecoverable(err) {
		w.logger.Warn(ctx, err, "skipping reload, keeping previous document", "path", w.target.Path)
		return
	}
	w.logger.Error(ctx, err, "reload failed", "path", w.target.Path)
}

// Renderer turns Markdown into an HTML fragment.
type Renderer interface {
	Render(source []byte) (string, error)
}

// Updater commits a rendered document.
type Updater interface {
	Update(name, html string) store.Artifact
}

// FileReloader reads the target file, renders it and commits the result.
type FileReloader struct {
	Path     string
	Name     string
	Renderer Renderer
	Cache    Updater
	Logger   logging.Logger
}

// Reload returns a recoverable I/O error when the file cannot be read; the
// cache is left untouched in that case.
func (r *FileReloader) Reload(ctx context.Context) error {
	text, err := os.ReadFile(r.Path)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeSourceRead, "reading source", err).WithPath(r.Path)
	}

	html, err := r.Renderer.Render(text)
	if err != nil {
		return errors.NewInternalError(errors.ErrCodeInternalError, "rendering source", err).WithPath(r.Path)
	}

	artifact := r.Cache.Update(r.Name, html)
	if r.Logger != nil {
		r.Logger.Debug(ctx, "document re-rendered", "version", artifact.Version, "bytes", len(html))
	}
	return nil
}

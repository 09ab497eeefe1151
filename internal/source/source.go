// Package source loads the Markdown document to preview and describes what,
// if anything, should be watched for changes.
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"

	"github.com/conneroisu/marklive/internal/errors"
)

// Display names for sources that have no file name.
const (
	ClipboardName = "Clipboard"
	StdinName     = "New file"
)

// Target is the filesystem path being watched. The zero value is Ephemeral.
type Target struct {
	Path string
}

// Ephemeral marks content with no backing file. Nothing is watched and the
// rendered document never changes.
var Ephemeral = Target{}

// IsEphemeral reports whether t has no backing file.
func (t Target) IsEphemeral() bool {
	return t.Path == ""
}

func (t Target) String() string {
	if t.IsEphemeral() {
		return "<ephemeral>"
	}
	return t.Path
}

// Document is the initial source text and where it came from.
type Document struct {
	Name   string
	Text   []byte
	Target Target
}

// Options select the source. Path and Clipboard are mutually exclusive;
// with neither, Stdin is read.
type Options struct {
	Path      string
	Clipboard bool
	Stdin     io.Reader
}

// readClipboard is swapped in tests; the real clipboard needs a display.
var readClipboard = clipboard.ReadAll

// Load reads the initial document.
func Load(opts Options) (Document, error) {
	switch {
	case opts.Path != "" && opts.Clipboard:
		return Document{}, errors.NewValidationError(errors.ErrCodeSourceConflict,
			"a file and --clipboard cannot be used together")
	case opts.Path != "":
		return LoadFile(opts.Path)
	case opts.Clipboard:
		text, err := readClipboard()
		if err != nil {
			return Document{}, errors.NewIOError(errors.ErrCodeClipboard, "reading clipboard", err)
		}
		return Document{Name: ClipboardName, Text: []byte(text), Target: Ephemeral}, nil
	default:
		stdin := opts.Stdin
		if stdin == nil {
			stdin = os.Stdin
		}
		text, err := io.ReadAll(stdin)
		if err != nil {
			return Document{}, errors.NewIOError(errors.ErrCodeSourceRead, "reading stdin", err)
		}
		return Document{Name: StdinName, Text: text, Target: Ephemeral}, nil
	}
}

// LoadFile reads path and returns a document that watches it. The target
// path is made absolute so the watcher is independent of later chdirs.
func LoadFile(path string) (Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, errors.NewIOError(errors.ErrCodeSourceRead, "resolving path", err).WithPath(path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, errors.NewIOError(errors.ErrCodeSourceMissing, "file does not exist", err).WithPath(path)
		}
		return Document{}, errors.NewIOError(errors.ErrCodeSourceRead, "stat failed", err).WithPath(path)
	}
	if info.IsDir() {
		return Document{}, errors.NewValidationError(errors.ErrCodeSourceRead,
			fmt.Sprintf("%s is a directory", path)).WithPath(path)
	}

	text, err := os.ReadFile(abs)
	if err != nil {
		return Document{}, errors.NewIOError(errors.ErrCodeSourceRead, "reading file", err).WithPath(path)
	}

	return Document{
		Name:   filepath.Base(abs),
		Text:   text,
		Target: Target{Path: abs},
	}, nil
}

package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/marklive/internal/page"
	"github.com/conneroisu/marklive/internal/version"
	"github.com/conneroisu/marklive/internal/watcher"
)

// handleIndex serves the current document wrapped in the page template.
// There is always a document: the first render finishes before serving.
func (s *PreviewServer) handleIndex(w http.ResponseWriter, r *http.Request) {
	artifact := s.cache.Read()

	var buf bytes.Buffer
	err := page.Document(page.Page{
		Title:   artifact.Name,
		Body:    artifact.HTML,
		CodeCSS: s.codeCSS,
		Live:    true,
		Assets:  s.assets,
	}).Render(r.Context(), &buf)
	if err != nil {
		s.logger.Error(r.Context(), err, "rendering page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Document-Version", strconv.FormatUint(artifact.Version, 10))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// handleHealth returns the server health status for health checks
func (s *PreviewServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	artifact := s.cache.Read()

	mode := watcher.ModeNone
	if s.watcher != nil {
		mode = s.watcher.Mode()
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   version.GetShortVersion(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"document": map[string]interface{}{
			"name":        artifact.Name,
			"version":     artifact.Version,
			"rendered_at": artifact.RenderedAt.UTC(),
		},
		"viewers": s.notifier.Len(),
		"watcher": map[string]interface{}{
			"mode": mode,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Warn(r.Context(), err, "failed to encode health response")
	}
}

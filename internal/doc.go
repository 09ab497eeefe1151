// Package internal contains the implementation packages for marklive.
//
// # Package Organization
//
//   - renderer: Markdown to HTML with goldmark, chroma and bluemonday
//   - page: the HTML document around the rendered body, as a templ component
//   - source: reading the initial document from a file, stdin or the clipboard
//   - store: the shared render cache holding the one current artifact
//   - notify: fan-out of change signals to per-viewer mailboxes
//   - watcher: change detection (fsnotify or polling), debouncing, reloads
//   - stream: per-viewer event streams over SSE and WebSocket
//   - server: HTTP routes, lifecycle and shutdown
//   - browser: opening the system browser and finding the LAN address
//   - config, logging, errors, validation, version: ambient support
//
// # Data Flow
//
// A write to the source file is detected by the watcher, debounced, read
// and rendered, then committed to the store. The commit publishes one
// signal through notify; each open stream turns it into a reload event and
// the browser re-fetches the page, which reads the store.
package internal

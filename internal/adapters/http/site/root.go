// Package site serves the landing page of the service.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page to mux. Only the exact root path is
// served; every other unmatched path is a 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests
type RootHandler struct{}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot handles GET / with a short index of the API.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" || (r.Method != http.MethodGet && r.Method != http.MethodHead) {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
  <head><meta charset="utf-8"><title>pcmatch</title></head>
  <body>
    <h1>pcmatch</h1>
    <p>Reviewer assignment for program committees.</p>
    <ul>
      <li><a href="/api-docs">API reference</a></li>
      <li><a href="/solves">Recent solves</a></li>
      <li><a href="/stats">Service stats</a></li>
      <li><a href="/healthz">Metrics</a></li>
    </ul>
  </body>
</html>`

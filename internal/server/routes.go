// Package server wires HTTP handlers into a gorilla/mux router for the
// Halcyon application.
package server

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"
)

// Routes builds the application's HTTP router: health check, WebSocket
// endpoint, and (when StaticDir is configured) static assets with an
// index.html catch-all so the SPA handles its own routing.
func (a *App) Routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", HealthHandler).Methods(http.MethodGet)
	r.HandleFunc("/ws", a.WebSocketHandler)

	if a.Config.StaticDir != "" {
		r.PathPrefix("/").Handler(spaHandler{dir: a.Config.StaticDir})
	} else {
		r.HandleFunc("/", HealthHandler).Methods(http.MethodGet)
	}

	return r
}

// spaHandler serves files from dir and falls back to index.html for any path
// that does not match an asset on disk.
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))

	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}

	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}

// Package server exposes the HTTP surface: the WebSocket upgrade endpoint, a
// health check, and optional static asset serving for the chat SPA.
package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// WebSocketHandler upgrades the HTTP connection, creates a Client with a
// fresh session handle, and registers it with the hub, which launches the
// read/write pumps.
func (a *App) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	client := NewClient(conn, a.Hub, r.RemoteAddr)
	a.Hub.register <- client
}

// HealthHandler reports process liveness.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, "Halcyon chat server is running!")
}

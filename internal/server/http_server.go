// Package server constructs and starts the Halcyon HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// CreateServer creates an HTTP server with the specified port and handler.
// Read/write timeouts are left unset because WebSocket connections are
// long-lived; the idle timeout still reaps dead keep-alive connections.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:        port,
		Handler:     handler,
		IdleTimeout: 60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
func StartServer(server *http.Server) error {
	logrus.WithField("addr", server.Addr).Info("Server listening")
	return server.ListenAndServe()
}

// ShutdownServer gracefully shuts down the HTTP server, waiting for active
// connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration) error {
	logrus.Info("Shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown error")
		return err
	}

	logrus.Info("HTTP server shutdown completed")
	return nil
}

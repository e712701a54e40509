package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halcyonchat/halcyon/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	app, err := server.NewApp(server.NewConfigFromEnv())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize application")
	}

	app.Start()

	httpServer := server.CreateServer(app.Config.Port, app.Routes())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Server failed")
		}
	case sig := <-stop:
		logrus.WithField("signal", sig.String()).Info("Shutting down")
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			logrus.WithError(err).Warn("HTTP shutdown did not complete cleanly")
		}
		if err := app.Close(shutdownTimeout); err != nil {
			logrus.WithError(err).Warn("Hub shutdown did not complete cleanly")
		}
	}
}

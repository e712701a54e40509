package server

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halcyonchat/halcyon/internal/store"
)

// App wires the domain stores, the hub, and the event router into one
// runnable unit. Stores live for the lifetime of the process; nothing is
// persisted across restarts unless the SQLite message backend is configured.
type App struct {
	Config   Config
	Hub      *Hub
	Users    *store.UserStore
	Presence *store.Presence
	Friends  *store.FriendStore
	Messages store.MessageStore
	Replay   *store.ReplayBuffer
}

// NewApp applies the configuration and builds the full service graph. Pass
// nil to run on defaults.
func NewApp(cfg *Config) (*App, error) {
	SetConfig(cfg)
	applied := currentConfig()

	if level, err := logrus.ParseLevel(applied.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	users := store.NewUserStore()
	presence := store.NewPresence(users)
	friends := store.NewFriendStore()
	replay := store.NewReplayBuffer(applied.GlobalReplayLimit)

	var messages store.MessageStore
	if applied.MessageDB != "" {
		sqlite, err := store.NewSQLiteMessageStore(applied.MessageDB)
		if err != nil {
			return nil, err
		}
		messages = sqlite
		logrus.WithField("path", applied.MessageDB).Info("Conversation history backed by SQLite")
	} else {
		messages = store.NewMemoryMessageStore()
	}

	hub := NewHub()
	hub.SetRouter(NewRouter(hub, users, presence, friends, messages, replay))

	return &App{
		Config:   applied,
		Hub:      hub,
		Users:    users,
		Presence: presence,
		Friends:  friends,
		Messages: messages,
		Replay:   replay,
	}, nil
}

// Start launches the hub's event loop.
func (a *App) Start() {
	go a.Hub.Run()
	logrus.Info("Hub started and ready to manage WebSocket connections")
}

// Close shuts down the hub and releases the message store.
func (a *App) Close(timeout time.Duration) error {
	if err := a.Hub.Shutdown(timeout); err != nil {
		a.Messages.Close()
		return err
	}
	return a.Messages.Close()
}

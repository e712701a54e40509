// Package server coordinates client registration, event dispatch, and
// connection cleanup for the Halcyon WebSocket system via the Hub type.
package server

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// inboundEvent pairs a parsed wire frame with the session it arrived on.
type inboundEvent struct {
	client   *Client
	envelope Envelope
}

// Hub owns the set of live connections and the single event loop that
// processes inbound events. Each event is handled to completion before the
// next is dequeued, so router handlers see the stores without interleaving.
type Hub struct {
	clients    map[uint64]*Client
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent
	router     *Router
	handleSeq  uint64
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a Hub ready to manage connections. Attach a Router with
// SetRouter before calling Run.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[uint64]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent, 64),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// SetRouter binds the event router invoked by the hub's run loop.
func (h *Hub) SetRouter(r *Router) {
	h.router = r
}

// GetRegisterChan returns the channel used for registering new clients.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel used for unregistering clients.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// nextHandle allocates a fresh session handle. Handles start at 1; zero means
// "no live session" in the presence tracker.
func (h *Hub) nextHandle() uint64 {
	return atomic.AddUint64(&h.handleSeq, 1)
}

// Run starts the hub's event loop: client registration, unregistration, and
// inbound event dispatch. Call in its own goroutine; it runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				logrus.Warn("Received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			client.closed = false
			h.clients[client.id] = client
			clientCount := len(h.clients)
			h.mutex.Unlock()
			logrus.WithFields(logrus.Fields{
				"addr":    client.addr,
				"handle":  client.id,
				"clients": clientCount,
			}).Info("Client connected")

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()

		case client := <-h.unregister:
			h.dropClient(client)
			if h.router != nil {
				h.router.clientClosed(client)
			}

		case ev := <-h.inbound:
			if h.router != nil {
				h.router.dispatch(ev.client, ev.envelope)
			}
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock.
	close(client.send)
	logrus.WithFields(logrus.Fields{
		"addr":    client.addr,
		"handle":  client.id,
		"clients": clientCount,
	}).Info("Client disconnected")
}

func (h *Hub) safeSend(client *Client, frame []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("recover", r).Warn("Recovered from panic in safeSend")
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- frame:
		return true
	default:
		return false
	}
}

// Send delivers a named event to the session identified by handle. It reports
// false when the handle no longer maps to a live connection or the client's
// buffer is full; callers treat that as the stale-handle case and move on.
func (h *Hub) Send(handle uint64, event string, data any) bool {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode event")
		return false
	}

	h.mutex.RLock()
	client, ok := h.clients[handle]
	h.mutex.RUnlock()
	if !ok {
		return false
	}
	return h.safeSend(client, frame)
}

// SendTo delivers a named event to a specific client.
func (h *Hub) SendTo(client *Client, event string, data any) bool {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode event")
		return false
	}
	return h.safeSend(client, frame)
}

// Broadcast delivers a named event to every connected client, including the
// originator. Clients whose buffers are full are dropped from the hub.
func (h *Hub) Broadcast(event string, data any) {
	frame, err := encodeEvent(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode event")
		return
	}

	h.mutex.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.RUnlock()

	var failed []*Client
	for _, client := range clients {
		if !h.safeSend(client, frame) {
			failed = append(failed, client)
		}
	}
	h.removeFailedClients(failed)
}

func (h *Hub) removeFailedClients(clients []*Client) {
	if len(clients) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clients {
		if _, exists := h.clients[client.id]; exists {
			delete(h.clients, client.id)
			client.closed = true
			channelsToClose = append(channelsToClose, client.send)
			logrus.WithField("addr", client.addr).Warn("Client removed due to full send buffer")
		}
	}
	h.mutex.Unlock()

	for _, ch := range channelsToClose {
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) shutdownClients() {
	logrus.Info("Shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				logrus.WithError(err).WithField("addr", client.addr).Debug("Error closing client connection")
			}
		}
	}

	logrus.WithField("clients", len(clients)).Info("Closed client connections")
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to finish, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	logrus.Info("Initiating hub shutdown")

	h.cancel()
	<-h.done

	// The run loop has exited, so keep draining the channels the pump
	// goroutines use on their way out. Dropping each unregistering client
	// closes its send channel, which lets its write pump finish.
	stopDrain := make(chan struct{})
	go func() {
		for {
			select {
			case client := <-h.unregister:
				h.dropClient(client)
			case <-h.inbound:
			case <-stopDrain:
				return
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	defer close(stopDrain)

	select {
	case <-done:
		logrus.Info("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		logrus.Warn("Hub shutdown timeout reached; some goroutines may still be running")
		return context.DeadlineExceeded
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}

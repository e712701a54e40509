// Package server manages individual WebSocket clients, handling read/write
// pumps, rate limiting, and lifecycle control for each connection.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

// Client represents one WebSocket session. Its id is the volatile connection
// handle stored by the presence tracker; username is empty until the session
// completes register or login and is only touched from the hub's event loop.
type Client struct {
	id             uint64
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	username       string
	closed         bool
	maxMessageSize int64
	rateLimiter    *rateLimiter
	rateLimit      RateLimitConfig
}

// NewClient creates a Client for the given connection and assigns it a fresh
// session handle. The send channel is buffered so outbound emits never block
// the event loop.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := currentConfig()
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:             hub.nextHandle(),
		conn:           conn,
		send:           make(chan []byte, 256),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		rateLimiter:    newRateLimiter(cfg.RateLimit.Burst, cfg.RateLimit.RefillInterval),
		rateLimit:      cfg.RateLimit,
	}
}

// Handle returns the client's session handle.
func (c *Client) Handle() uint64 {
	return c.id
}

// Username returns the identity bound to this session, or "" before login.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logrus.WithError(err).WithField("addr", c.addr).Warn("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// handleReadError logs the error and reports whether the read loop should stop.
func (c *Client) handleReadError(err error) bool {
	if err == nil {
		return false
	}

	log := logrus.WithField("addr", c.addr)

	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		log.WithField("limit", c.maxMessageSize).Warn("Message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		log.WithError(err).Debug("Client disconnected")
	case errors.Is(err, io.EOF), isExpectedCloseError(err):
		log.WithError(err).Debug("Client connection closed")
	default:
		log.WithError(err).Warn("WebSocket read error")
	}
	return true
}

// processFrame parses an inbound wire frame and queues it on the hub's event
// loop. Frames that are not valid envelopes earn a generic error event; the
// connection stays open.
func (c *Client) processFrame(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		logrus.WithFields(logrus.Fields{
			"addr": c.addr,
		}).Debug("Discarding malformed frame")
		c.enqueue(EventError, "Invalid payload")
		return
	}

	c.hub.inbound <- inboundEvent{client: c, envelope: env}
}

// enqueue serializes an event straight onto this client's send channel,
// bypassing the hub. Used only from the client's own goroutines. The send
// channel may be closed concurrently by the hub, hence the recover.
func (c *Client) enqueue(event string, data any) {
	defer func() {
		_ = recover()
	}()

	frame, err := encodeEvent(event, data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Failed to encode event")
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logrus.WithError(err).Debug("Error closing connection in readPump")
		}
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				break
			}
		}

		if c.rateLimiter != nil && !c.rateLimiter.allow() {
			logrus.WithFields(logrus.Fields{
				"addr":  c.addr,
				"burst": c.rateLimit.Burst,
			}).Warn("Rate limit exceeded; discarding message")
			continue
		}

		c.processFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			logrus.WithError(err).Debug("Error closing connection in writePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !isExpectedCloseError(err) {
					logrus.WithError(err).WithField("addr", c.addr).Debug("Error writing message")
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

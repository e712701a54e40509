// Package testhelpers provides shared utilities for exercising the Halcyon
// server over real WebSocket connections in integration tests.
package testhelpers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// Event mirrors the wire envelope exchanged with the server.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// DialWebSocket opens a WebSocket connection to the test server's /ws
// endpoint and registers cleanup.
func DialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "failed to dial %s", wsURL)
	if resp != nil {
		resp.Body.Close()
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// SendEvent writes a named event with the given payload.
func SendEvent(t *testing.T, conn *websocket.Conn, event string, data any) {
	t.Helper()

	frame := map[string]any{"event": event}
	if data != nil {
		frame["data"] = data
	}
	require.NoError(t, conn.WriteJSON(frame))
}

// WaitForEvent reads frames until one matching the wanted event name arrives,
// skipping unrelated events, and returns its payload. It fails the test after
// the timeout.
func WaitForEvent(t *testing.T, conn *websocket.Conn, event string) json.RawMessage {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		require.NoError(t, conn.SetReadDeadline(deadline))

		_, frame, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for event %q", event)

		var ev Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		if ev.Event == event {
			return ev.Data
		}
	}

	t.Fatalf("timed out waiting for event %q", event)
	return nil
}

// ExpectNoEvent asserts that no frame arrives within the given window.
func ExpectNoEvent(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(window)))
	_, frame, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no event, got %s", frame)
	}
}

// Unmarshal decodes a payload into out, failing the test on error.
func Unmarshal(t *testing.T, data json.RawMessage, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, out))
}

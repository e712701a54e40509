// Package server implements the Halcyon chat service: a WebSocket transport
// carrying named JSON events, a hub that serializes event handling onto a
// single loop, and a router that maps each event to reads and mutations of
// the identity, relationship, conversation, and presence stores.
package server

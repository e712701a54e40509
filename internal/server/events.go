// Package server implements the WebSocket transport and the event router for
// the Halcyon chat service: named JSON events flow in from clients, handlers
// mutate the domain stores, and outbound events fan back out through the hub.
package server

import (
	"encoding/json"

	"github.com/halcyonchat/halcyon/internal/store"
)

// Envelope is the wire frame exchanged over a connection: a named event plus
// its payload. Payload shapes are validated per event before dispatch.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventRegister            = "register"
	EventLogin               = "login"
	EventSearchUsers         = "search_users"
	EventSendFriendRequest   = "send_friend_request"
	EventAcceptFriendRequest = "accept_friend_request"
	EventRejectFriendRequest = "reject_friend_request"
	EventLoadChatHistory     = "load_chat_history"
	EventPrivateMessage      = "private_message"
	EventGlobalMessage       = "global_message"
)

// Outbound event names.
const (
	EventRegisterSuccess   = "register_success"
	EventRegisterError     = "register_error"
	EventLoginSuccess      = "login_success"
	EventLoginError        = "login_error"
	EventSearchResults     = "search_results"
	EventFriendRequestSent = "friend_request_sent"
	EventNewFriendRequest  = "new_friend_request"
	EventFriendAdded       = "friend_added"
	EventUpdateFriends     = "update_friends"
	EventUpdateRequests    = "update_requests"
	EventChatHistory       = "chat_history"
	EventNewPrivateMessage = "new_private_message"
	EventNewGlobalMessage  = "new_global_message"
	EventGlobalHistory     = "global_history"
	EventError             = "error"
)

// Typed request records, one per inbound event.

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type friendTargetRequest struct {
	To string `json:"to"`
}

type friendSourceRequest struct {
	From string `json:"from"`
}

type historyRequest struct {
	Friend string `json:"friend"`
}

type privateMessageRequest struct {
	To   string `json:"to"`
	Text string `json:"text"`
}

type globalMessageRequest struct {
	Text string `json:"text"`
}

// Outbound payload records. Field names are the wire contract.

type userPayload struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

type friendEntry struct {
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
	Online   bool   `json:"online"`
}

type registerSuccessPayload struct {
	User userPayload `json:"user"`
}

type loginSuccessPayload struct {
	User           userPayload           `json:"user"`
	Friends        []friendEntry         `json:"friends"`
	FriendRequests []store.FriendRequest `json:"friendRequests"`
}

type newFriendRequestPayload struct {
	From       string `json:"from"`
	FromAvatar string `json:"fromAvatar"`
}

type chatHistoryPayload struct {
	Friend   string          `json:"friend"`
	Messages []store.Message `json:"messages"`
}

type globalHistoryPayload struct {
	Messages []store.Message `json:"messages"`
}

// encodeEvent marshals a named event and payload into a wire frame.
func encodeEvent(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

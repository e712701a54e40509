package server

import (
	"encoding/json"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/halcyonchat/halcyon/internal/store"
)

// User-facing error strings carried on the error channels. The registration
// flow has dedicated error events; everything else shares the generic one.
const (
	msgUsernameTaken      = "Username is already taken"
	msgUsernameTooShort   = "Username must be at least 3 characters"
	msgInvalidCredentials = "Invalid username or password"
	msgUserNotFound       = "User not found"
	msgAlreadyFriends     = "This user is already your friend"
	msgInvalidPayload     = "Invalid payload"
)

const maxSearchResults = 10

// fallbackAvatar is used when composing a payload for a user record that
// cannot be resolved anymore.
const fallbackAvatar = "😎"

// Router binds each inbound named event to its handler. Handlers run on the
// hub's event loop, one event at a time, so store reads and mutations within
// a handler are atomic with respect to every other event.
type Router struct {
	hub      *Hub
	users    *store.UserStore
	presence *store.Presence
	friends  *store.FriendStore
	messages store.MessageStore
	replay   *store.ReplayBuffer
}

// NewRouter wires the event router to the hub and the domain stores.
func NewRouter(hub *Hub, users *store.UserStore, presence *store.Presence, friends *store.FriendStore, messages store.MessageStore, replay *store.ReplayBuffer) *Router {
	return &Router{
		hub:      hub,
		users:    users,
		presence: presence,
		friends:  friends,
		messages: messages,
		replay:   replay,
	}
}

// dispatch routes one inbound event. Events that require an authenticated
// identity are silently ignored until the session completes register or
// login; the connection stays open either way.
func (r *Router) dispatch(c *Client, env Envelope) {
	switch env.Event {
	case EventRegister:
		r.handleRegister(c, env.Data)
	case EventLogin:
		r.handleLogin(c, env.Data)
	default:
	}

	if c.username == "" {
		return
	}

	switch env.Event {
	case EventSearchUsers:
		r.handleSearchUsers(c, env.Data)
	case EventSendFriendRequest:
		r.handleSendFriendRequest(c, env.Data)
	case EventAcceptFriendRequest:
		r.handleAcceptFriendRequest(c, env.Data)
	case EventRejectFriendRequest:
		r.handleRejectFriendRequest(c, env.Data)
	case EventLoadChatHistory:
		r.handleLoadChatHistory(c, env.Data)
	case EventPrivateMessage:
		r.handlePrivateMessage(c, env.Data)
	case EventGlobalMessage:
		r.handleGlobalMessage(c, env.Data)
	}
}

// clientClosed runs when a connection goes away, before or after login.
func (r *Router) clientClosed(c *Client) {
	r.presence.MarkOffline(c.id)
	if c.username != "" {
		logrus.WithField("username", c.username).Info("User went offline")
	}
}

func (r *Router) decode(c *Client, data json.RawMessage, into any) bool {
	if err := json.Unmarshal(data, into); err != nil {
		logrus.WithFields(logrus.Fields{
			"addr": c.addr,
		}).Debug("Rejecting malformed event payload")
		r.hub.SendTo(c, EventError, msgInvalidPayload)
		return false
	}
	return true
}

func (r *Router) handleRegister(c *Client, data json.RawMessage) {
	var req credentialsRequest
	if !r.decode(c, data, &req) {
		return
	}

	user, err := r.users.Register(req.Username, req.Password)
	switch err {
	case nil:
	case store.ErrUsernameTaken:
		r.hub.SendTo(c, EventRegisterError, msgUsernameTaken)
		return
	case store.ErrUsernameTooShort:
		r.hub.SendTo(c, EventRegisterError, msgUsernameTooShort)
		return
	default:
		logrus.WithError(err).Error("Registration failed")
		r.hub.SendTo(c, EventRegisterError, "Internal error")
		return
	}

	r.bindSession(c, user.Username)
	r.hub.SendTo(c, EventRegisterSuccess, registerSuccessPayload{
		User: userPayload{Username: user.Username, Avatar: user.Avatar},
	})
	r.sendGlobalHistory(c)
}

func (r *Router) handleLogin(c *Client, data json.RawMessage) {
	var req credentialsRequest
	if !r.decode(c, data, &req) {
		return
	}

	user, err := r.users.Authenticate(req.Username, req.Password)
	switch err {
	case nil:
	case store.ErrInvalidCredentials:
		r.hub.SendTo(c, EventLoginError, msgInvalidCredentials)
		return
	case store.ErrUsernameTooShort:
		r.hub.SendTo(c, EventLoginError, msgUsernameTooShort)
		return
	default:
		logrus.WithError(err).Error("Login failed")
		r.hub.SendTo(c, EventLoginError, "Internal error")
		return
	}

	r.bindSession(c, user.Username)
	r.hub.SendTo(c, EventLoginSuccess, loginSuccessPayload{
		User:           userPayload{Username: user.Username, Avatar: user.Avatar},
		Friends:        r.friendList(user.Username),
		FriendRequests: r.friends.PendingRequests(user.Username),
	})
	r.sendGlobalHistory(c)

	logrus.WithField("username", user.Username).Info("User logged in")
}

func (r *Router) bindSession(c *Client, username string) {
	c.username = username
	r.presence.MarkOnline(username, c.id)
}

func (r *Router) sendGlobalHistory(c *Client) {
	messages := r.replay.Messages()
	if messages == nil {
		messages = []store.Message{}
	}
	r.hub.SendTo(c, EventGlobalHistory, globalHistoryPayload{Messages: messages})
}

func (r *Router) handleSearchUsers(c *Client, data json.RawMessage) {
	var req searchRequest
	if !r.decode(c, data, &req) {
		return
	}

	results := make([]friendEntry, 0, maxSearchResults)
	for _, user := range r.users.Search(req.Query, c.username, 0) {
		if r.friends.AreFriends(c.username, user.Username) {
			continue
		}
		results = append(results, friendEntry{
			Username: user.Username,
			Avatar:   user.Avatar,
			Online:   user.Online,
		})
		if len(results) >= maxSearchResults {
			break
		}
	}

	r.hub.SendTo(c, EventSearchResults, results)
}

func (r *Router) handleSendFriendRequest(c *Client, data json.RawMessage) {
	var req friendTargetRequest
	if !r.decode(c, data, &req) {
		return
	}

	if _, ok := r.users.Get(req.To); !ok {
		r.hub.SendTo(c, EventError, msgUserNotFound)
		return
	}

	sender, _ := r.users.Get(c.username)
	if err := r.friends.AddRequest(c.username, sender.Avatar, req.To); err != nil {
		// Only ErrAlreadyFriends can come back here.
		r.hub.SendTo(c, EventError, msgAlreadyFriends)
		return
	}

	if handle, online := r.presence.HandleFor(req.To); online {
		r.hub.Send(handle, EventNewFriendRequest, newFriendRequestPayload{
			From:       c.username,
			FromAvatar: sender.Avatar,
		})
	}

	r.hub.SendTo(c, EventFriendRequestSent, req.To)
}

func (r *Router) handleAcceptFriendRequest(c *Client, data json.RawMessage) {
	var req friendSourceRequest
	if !r.decode(c, data, &req) {
		return
	}

	r.friends.AcceptRequest(c.username, req.From)

	// Tell the accepter about their new friend, resolved live.
	entry := friendEntry{Username: req.From, Avatar: fallbackAvatar}
	if requester, ok := r.users.Get(req.From); ok {
		entry.Avatar = requester.Avatar
		entry.Online = requester.Online
	}
	r.hub.SendTo(c, EventFriendAdded, entry)

	// Tell the requester, if their handle is still live.
	accepter, _ := r.users.Get(c.username)
	if handle, online := r.presence.HandleFor(req.From); online {
		r.hub.Send(handle, EventFriendAdded, friendEntry{
			Username: c.username,
			Avatar:   accepter.Avatar,
			Online:   true,
		})
	}

	r.hub.SendTo(c, EventUpdateFriends, r.friendList(c.username))
}

func (r *Router) handleRejectFriendRequest(c *Client, data json.RawMessage) {
	var req friendSourceRequest
	if !r.decode(c, data, &req) {
		return
	}

	r.friends.RejectRequest(c.username, req.From)
	r.hub.SendTo(c, EventUpdateRequests, r.friends.PendingRequests(c.username))
}

func (r *Router) handleLoadChatHistory(c *Client, data json.RawMessage) {
	var req historyRequest
	if !r.decode(c, data, &req) {
		return
	}

	history, err := r.messages.History(c.username, req.Friend)
	if err != nil {
		logrus.WithError(err).Error("Failed to load chat history")
		r.hub.SendTo(c, EventError, "Internal error")
		return
	}
	if history == nil {
		history = []store.Message{}
	}

	r.hub.SendTo(c, EventChatHistory, chatHistoryPayload{
		Friend:   req.Friend,
		Messages: history,
	})
}

func (r *Router) handlePrivateMessage(c *Client, data json.RawMessage) {
	var req privateMessageRequest
	if !r.decode(c, data, &req) {
		return
	}

	if _, ok := r.users.Get(req.To); !ok {
		r.hub.SendTo(c, EventError, msgUserNotFound)
		return
	}

	sender, _ := r.users.Get(c.username)
	msg, err := r.messages.Append(c.username, sender.Avatar, req.To, req.Text)
	if err != nil {
		logrus.WithError(err).Error("Failed to store private message")
		r.hub.SendTo(c, EventError, "Internal error")
		return
	}

	// Recipient gets the message only while online; otherwise it waits in
	// history until they reconnect and load it.
	if handle, online := r.presence.HandleFor(req.To); online {
		r.hub.Send(handle, EventNewPrivateMessage, msg)
	}

	r.hub.SendTo(c, EventNewPrivateMessage, msg)

	logrus.WithFields(logrus.Fields{
		"from": c.username,
		"to":   req.To,
	}).Debug("Private message delivered")
}

func (r *Router) handleGlobalMessage(c *Client, data json.RawMessage) {
	var req globalMessageRequest
	if !r.decode(c, data, &req) {
		return
	}

	sender, _ := r.users.Get(c.username)
	msg := store.NewMessage(c.username, sender.Avatar, "", req.Text)
	r.replay.Add(msg)

	r.hub.Broadcast(EventNewGlobalMessage, msg)
}

// friendList composes the live friend list for a user: usernames from the
// relationship store, avatar and presence resolved against the identity store
// at emit time.
func (r *Router) friendList(username string) []friendEntry {
	names := r.friends.Friends(username)
	sort.Strings(names)

	list := make([]friendEntry, 0, len(names))
	for _, name := range names {
		user, ok := r.users.Get(name)
		if !ok {
			continue
		}
		list = append(list, friendEntry{
			Username: user.Username,
			Avatar:   user.Avatar,
			Online:   user.Online,
		})
	}
	return list
}

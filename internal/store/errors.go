package store

import "errors"

// Sentinel errors returned by the stores. Handlers translate these into
// user-facing strings on the wire; they never cross the connection boundary
// as-is.
var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrUsernameTooShort   = errors.New("username must be at least 3 characters")
	ErrAlreadyFriends     = errors.New("this user is already your friend")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

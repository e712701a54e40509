package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterCreatesUserWithPaletteAvatar(t *testing.T) {
	s := NewUserStore()

	user, err := s.Register("alice", "secret")
	require.NoError(t, err)

	assert.Equal(t, "alice", user.Username)
	assert.Contains(t, AvatarPalette(), user.Avatar)
	assert.False(t, user.Online)
	assert.Zero(t, user.Handle)
}

func TestRegisterRejectsShortUsername(t *testing.T) {
	s := NewUserStore()

	user, err := s.Register("al", "secret")
	assert.ErrorIs(t, err, ErrUsernameTooShort)
	assert.Zero(t, user)
	assert.Equal(t, 0, s.Len(), "no user should be created on rejection")
}

func TestRegisterRejectsDuplicateUsername(t *testing.T) {
	s := NewUserStore()

	_, err := s.Register("alice", "secret")
	require.NoError(t, err)

	user, err := s.Register("alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Zero(t, user)
	assert.Equal(t, 1, s.Len())
}

func TestAuthenticateVerifiesPassword(t *testing.T) {
	s := NewUserStore()

	_, err := s.Register("alice", "secret")
	require.NoError(t, err)

	user, err := s.Authenticate("alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)

	_, err = s.Authenticate("alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateAutoProvisionsUnknownUsername(t *testing.T) {
	s := NewUserStore()

	user, err := s.Authenticate("carol", "secret")
	require.NoError(t, err)

	assert.Equal(t, "carol", user.Username)
	assert.Contains(t, AvatarPalette(), user.Avatar)

	// The provisioned password is enforced on later logins.
	_, err = s.Authenticate("carol", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSearchMatchesCaseInsensitiveSubstring(t *testing.T) {
	s := NewUserStore()
	for _, name := range []string{"Alice", "alicia", "bob", "malice"} {
		_, err := s.Register(name, "pw")
		require.NoError(t, err)
	}

	results := s.Search("ali", "bob", 0)
	require.Len(t, results, 3)

	// Insertion order of the store.
	assert.Equal(t, "Alice", results[0].Username)
	assert.Equal(t, "alicia", results[1].Username)
	assert.Equal(t, "malice", results[2].Username)
}

func TestSearchExcludesRequester(t *testing.T) {
	s := NewUserStore()
	_, err := s.Register("alice", "pw")
	require.NoError(t, err)

	results := s.Search("alice", "alice", 0)
	assert.Empty(t, results)
}

func TestSearchRespectsLimit(t *testing.T) {
	s := NewUserStore()
	for i := 0; i < 15; i++ {
		_, err := s.Register(fmt.Sprintf("user%02d", i), "pw")
		require.NoError(t, err)
	}

	results := s.Search("user", "", 10)
	assert.Len(t, results, 10)
}

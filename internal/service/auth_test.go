package service

import (
	"context"
	"errors"
	"testing"

	"goodads/internal/conf"
	"goodads/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	repository.SessionStorage
}

func (failingStorage) Get(context.Context, string, string) (string, error) {
	return "", repository.ErrNotFound
}

func (failingStorage) Set(context.Context, string, string, string) error {
	return errors.New("storage down")
}

func newAuth(storage repository.SessionStorage) *AuthService {
	return NewAuthService(storage, conf.AdminConfig{Username: "admin", Password: "goodads"}, quietLog())
}

func TestSessionLoginLogout(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemorySessionStorage()
	auth := newAuth(storage)

	sess, err := auth.Open(ctx, "browser-1")
	require.NoError(t, err)
	assert.False(t, sess.IsAuthenticated())

	require.NoError(t, sess.Login(ctx, "admin", "goodads"))
	assert.True(t, sess.IsAuthenticated())

	// a new request from the same browser sees the persisted flag
	again, err := auth.Open(ctx, "browser-1")
	require.NoError(t, err)
	assert.True(t, again.IsAuthenticated())

	other, err := auth.Open(ctx, "browser-2")
	require.NoError(t, err)
	assert.False(t, other.IsAuthenticated())

	require.NoError(t, again.Logout(ctx))
	assert.False(t, again.IsAuthenticated())

	reopened, err := auth.Open(ctx, "browser-1")
	require.NoError(t, err)
	assert.False(t, reopened.IsAuthenticated())
}

func TestSessionLoginRejectsMismatch(t *testing.T) {
	ctx := context.Background()
	storage := repository.NewMemorySessionStorage()
	auth := newAuth(storage)
	sess, err := auth.Open(ctx, "browser-1")
	require.NoError(t, err)

	for _, c := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"Admin", "goodads"},
		{"admin", "goodads "},
		{"", ""},
	} {
		assert.ErrorIs(t, sess.Login(ctx, c.user, c.pass), ErrInvalidCredentials)
		assert.False(t, sess.IsAuthenticated())
	}

	_, err = storage.Get(ctx, "browser-1", LoggedInKey)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionEmptyConfiguredPasswordNeverMatches(t *testing.T) {
	auth := NewAuthService(repository.NewMemorySessionStorage(), conf.AdminConfig{Username: "admin"}, quietLog())
	sess, err := auth.Open(context.Background(), "b")
	require.NoError(t, err)
	assert.ErrorIs(t, sess.Login(context.Background(), "admin", ""), ErrInvalidCredentials)
}

func TestSessionLoginStorageFailureStaysLoggedOut(t *testing.T) {
	auth := newAuth(failingStorage{})
	sess, err := auth.Open(context.Background(), "b")
	require.NoError(t, err)

	err = sess.Login(context.Background(), "admin", "goodads")
	assert.ErrorContains(t, err, "storage down")
	assert.False(t, sess.IsAuthenticated())
}

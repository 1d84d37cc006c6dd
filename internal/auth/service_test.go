package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lakay-market/storefront/internal/config"
	"github.com/lakay-market/storefront/internal/identity"
)

func newTestService(t *testing.T) (*Service, identity.User) {
	t.Helper()
	repo := identity.NewMemoryRepository()
	ids := identity.NewService(repo)
	user, err := ids.Register(context.Background(), identity.Registration{Phone: "50937111111", Password: "password", Name: "Anne"})
	require.NoError(t, err)

	cfg := config.Config{
		JWTSecret:       "access-secret",
		RefreshSecret:   "refresh-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	}
	return NewService(cfg, repo), user
}

func TestLoginAndVerify(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)
	assert.Equal(t, int64(60), pair.ExpiresIn)

	claims, err := svc.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	// Refresh tokens are not accepted as access tokens.
	_, err = svc.Verify(ctx, pair.RefreshToken)
	assert.True(t, errors.Is(err, ErrInvalidToken))
}

func TestRefreshIssuesAccessToken(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)

	access, exp, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, int64(60), exp)

	_, err = svc.Verify(ctx, access)
	assert.NoError(t, err)

	_, _, err = svc.Refresh(ctx, pair.AccessToken)
	assert.Error(t, err)
}

func TestLogoutRevokesTokens(t *testing.T) {
	svc, user := newTestService(t)
	ctx := context.Background()

	pair, err := svc.Login(user)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, user.ID))

	_, err = svc.Verify(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	svc, user := newTestService(t)
	other := NewService(config.Config{JWTSecret: "someone-else", RefreshSecret: "x", AccessTokenTTL: time.Minute}, nil)

	token, err := other.sign(user.ID, 0, tokenTypeAccess, "someone-else", time.Minute)
	require.NoError(t, err)

	_, err = svc.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

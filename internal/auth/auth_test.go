package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/usershub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testUser() user.PublicUser {
	return user.PublicUser{ID: 7, Name: "Al", Email: "al@example.com", Role: user.RoleAdmin}
}

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)

	token, expiresAt, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := m.VerifyAccessToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID, "jti should be set")

	id, err := claims.Identity()
	require.NoError(t, err)
	require.Equal(t, user.Identity{ID: 7, Email: "al@example.com", Role: user.RoleAdmin}, id)
	require.True(t, id.IsAdmin())
}

func TestManager_RejectsExpired(t *testing.T) {
	m := NewManager("test-secret-key", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.GenerateAccessToken(testUser())
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.VerifyAccessToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	token, _, err := issuer.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = verifier.VerifyAccessToken(token)
	require.Error(t, err)
}

func TestManager_RejectsWrongType(t *testing.T) {
	m := NewManager("test-secret-key", time.Hour)

	claims := Claims{
		UserID:    "7",
		Role:      user.RoleUser,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	require.NoError(t, err)

	_, err = m.VerifyAccessToken(token)
	require.True(t, errors.Is(err, ErrInvalidTokenType))
}

func TestClaims_IdentityRejectsBadSubject(t *testing.T) {
	for _, uid := range []string{"", "abc", "0", "-3"} {
		_, err := (&Claims{UserID: uid}).Identity()
		require.ErrorIs(t, err, ErrInvalidToken, "uid=%q", uid)
	}
}

func TestRevocationStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRevocationStore(rdb)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "jti-1", time.Now().Add(time.Minute)))

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.True(t, revoked)

	mr.FastForward(2 * time.Minute)

	revoked, err = store.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	require.False(t, revoked, "entry should expire with the token")
}

func TestRevocationStore_SkipsExpiredTokens(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := NewRevocationStore(rdb)

	require.NoError(t, store.Revoke(context.Background(), "old", time.Now().Add(-time.Second)))
	require.Empty(t, mr.Keys())
}

package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-timesheet/internal/config"
	"employee-timesheet/internal/nonce"
)

func setup(t *testing.T) {
	t.Helper()
	prevCfg, prevStore := config.Cfg, nonce.Store
	config.Cfg = &config.Config{Secret: "test-secret", TokenExpirySkew: 1}
	store := nonce.NewMemoryStore()
	nonce.Store = store
	t.Cleanup(func() {
		store.Close()
		config.Cfg, nonce.Store = prevCfg, prevStore
	})
}

func TestAuthToken_RoundTrip(t *testing.T) {
	setup(t)
	ctx := context.Background()

	claims, err := NewAuthClaims(ctx, 7, "alice", time.Hour)
	require.NoError(t, err)
	token, err := GenerateJWT(claims)
	require.NoError(t, err)

	decoded, err := DecodeAuthJWT(ctx, token)
	require.NoError(t, err)
	assert.EqualValues(t, 7, decoded.UserID)
	assert.Equal(t, "alice", decoded.Username)
	assert.Equal(t, "7", decoded.Subject)

	// Tokens are reusable until revoked.
	_, err = DecodeAuthJWT(ctx, token)
	require.NoError(t, err)

	require.NoError(t, Revoke(ctx, decoded))
	_, err = DecodeAuthJWT(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestAuthToken_Rejections(t *testing.T) {
	setup(t)
	ctx := context.Background()

	claims, err := NewAuthClaims(ctx, 7, "alice", time.Hour)
	require.NoError(t, err)
	token, err := GenerateJWT(claims)
	require.NoError(t, err)

	config.Cfg.Secret = "rotated"
	_, err = DecodeAuthJWT(ctx, token)
	assert.ErrorIs(t, err, ErrNonValidToken)
	config.Cfg.Secret = "test-secret"

	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	expired, err := GenerateJWT(claims)
	require.NoError(t, err)
	_, err = DecodeAuthJWT(ctx, expired)
	assert.ErrorIs(t, err, ErrNonValidToken)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = DecodeAuthJWT(ctx, unsigned)
	assert.ErrorIs(t, err, ErrNonValidToken)

	_, err = NewAuthClaims(ctx, 7, "alice", 0)
	assert.Error(t, err)

	config.Cfg.Secret = ""
	_, err = GenerateJWT(claims)
	assert.ErrorIs(t, err, ErrNoSecret)
}

// Package jwt issues and verifies the session token stored in the login cookie.
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"employee-timesheet/internal/config"
	"employee-timesheet/internal/nonce"
)

var (
	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrNonValidToken    = errors.New("token did not pass validation")
	ErrInvalidClaimType = errors.New("invalid claim type")
	ErrNoSecret         = errors.New("token secret is not configured")
)

var tokenSignatureAlg = jwt.SigningMethodHS256

// AuthClaims identify a signed-in user.
type AuthClaims struct {
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	// MustRenew forces a new token on the next renewal check
	MustRenew bool `json:"must_renew,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthClaims creates claims valid for ttl. The claim ID is a fresh nonce
// that outlives the token by the configured expiry skew.
func NewAuthClaims(ctx context.Context, userID int64, username string, ttl time.Duration) (AuthClaims, error) {
	if ttl <= 0 {
		return AuthClaims{}, fmt.Errorf("invalid token TTL %s", ttl)
	}
	skew := time.Second
	if config.Cfg != nil {
		skew = time.Duration(config.Cfg.TokenExpirySkew) * time.Second
	}
	id, err := nonce.Nonce(ctx, ttl+skew)
	if err != nil {
		return AuthClaims{}, fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := time.Now().UTC()
	return AuthClaims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}, nil
}

// DecodeAuthJWT verifies the signature, expiry and nonce of a session token.
// The nonce is not consumed; use Revoke for that.
func DecodeAuthJWT(ctx context.Context, tokenString string) (*AuthClaims, error) {
	claims, err := decodeJWT(tokenString, &AuthClaims{})
	if err != nil {
		return nil, err
	}
	if nonce.Store == nil || !nonce.Store.Exists(ctx, claims.ID) {
		return nil, ErrInvalidNonce
	}
	return claims, nil
}

// Revoke invalidates the token by consuming its nonce.
func Revoke(ctx context.Context, claims *AuthClaims) error {
	if nonce.Store == nil {
		return nonce.ErrNoStore
	}
	ok, err := nonce.Store.Consume(ctx, claims.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidNonce
	}
	return nil
}

func secret() ([]byte, error) {
	if config.Cfg == nil || config.Cfg.Secret == "" {
		return nil, ErrNoSecret
	}
	return []byte(config.Cfg.Secret), nil
}

// Generic JWT token generation function
func GenerateJWT(claims jwt.Claims) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	token := jwt.NewWithClaims(tokenSignatureAlg, claims)
	return token.SignedString(key)
}

func decodeJWT[T jwt.Claims](tokenString string, claimsType T) (T, error) {
	var zero T

	key, err := secret()
	if err != nil {
		return zero, err
	}

	parsedToken, err := jwt.ParseWithClaims(tokenString, claimsType, func(token *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{tokenSignatureAlg.Alg()}), jwt.WithExpirationRequired())

	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrNonValidToken, err)
	} else if parsedToken == nil || !parsedToken.Valid {
		return zero, ErrNonValidToken
	} else if claims, ok := parsedToken.Claims.(T); ok {
		return claims, nil
	}

	return zero, ErrInvalidClaimType
}

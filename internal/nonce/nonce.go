// Package nonce keeps the single-use identifiers embedded in session tokens.
// A token is only valid while its nonce is stored; logging out consumes it.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"employee-timesheet/internal/config"
)

var Store NonceStoreInterface

// Number of random bytes. 16 → 128‑bit
const NONCE_SIZE = 16

type NonceStoreType string

// Supported nonce stores.
const (
	Memory NonceStoreType = "memory"
	SQL    NonceStoreType = "sql"
)

var (
	ErrNonceMissing = errors.New("nonce not found")
	ErrNonceExpired = errors.New("nonce expired")
	ErrNoStore      = errors.New("nonce store not initialized")
)

type NonceMissingError struct {
	Nonce string
}

func (e *NonceMissingError) Error() string {
	return fmt.Sprintf("nonce not found: %s", e.Nonce)
}

func (e *NonceMissingError) Unwrap() error { return ErrNonceMissing }

type NonceExpiredError struct {
	Nonce  string
	Expiry time.Time
}

func (e *NonceExpiredError) Error() string {
	return fmt.Sprintf("nonce expired: %s (expiry: %s)", e.Nonce, e.Expiry)
}

func (e *NonceExpiredError) Unwrap() error { return ErrNonceExpired }

type NonceStoreInterface interface {
	// stores a nonce with a TTL.
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// verifies and deletes the nonce.
	// Returns true if the nonce existed (valid request), false otherwise.
	Consume(ctx context.Context, nonce string) (bool, error)

	Exists(ctx context.Context, nonce string) bool

	ExpireNonces(ctx context.Context) error

	// Close stops the background janitor.
	Close()
}

func generateNonceToken() (string, error) {
	b := make([]byte, NONCE_SIZE)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Nonce creates a new nonce and stores it in the global store.
func Nonce(ctx context.Context, ttl time.Duration) (string, error) {
	if Store == nil {
		return "", ErrNoStore
	}
	nonce, err := generateNonceToken()
	if err != nil {
		return "", err
	}
	if err := Store.Put(ctx, nonce, ttl); err != nil {
		return "", fmt.Errorf("failed to store nonce: %w", err)
	}
	return nonce, nil
}

// Backend is the storage used by the SQL nonce store.
type Backend interface {
	CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	ExistsNonce(ctx context.Context, nonce string) (bool, error)
	ConsumeNonce(ctx context.Context, nonce string) (bool, error)
	ExpireNonces(ctx context.Context, now time.Time) error
}

// NewStore builds the store named by cfg.NonceStore.
func NewStore(cfg *config.Config, backend Backend) (NonceStoreInterface, error) {
	switch NonceStoreType(cfg.NonceStore) {
	case Memory:
		return NewMemoryStore(), nil
	case SQL:
		if backend == nil {
			return nil, fmt.Errorf("sql nonce store needs a storage provider")
		}
		return NewSQLNonceStore(backend), nil
	default:
		return nil, fmt.Errorf("unknown store type %q", cfg.NonceStore)
	}
}

// janitorInterval is twice the token expiry skew.
func janitorInterval(cfg *config.Config) time.Duration {
	skew := cfg.TokenExpirySkew
	if skew == 0 {
		skew = 1
	}
	return time.Duration(skew) * 2 * time.Second
}

// InitNonceStore creates the configured store, starts its janitor and makes it
// the global Store.
func InitNonceStore(cfg *config.Config, backend Backend) error {
	store, err := NewStore(cfg, backend)
	if err != nil {
		return fmt.Errorf("failed to initialize nonce store: %w", err)
	}

	interval := janitorInterval(cfg)
	switch s := store.(type) {
	case *SQLNonceStore:
		go s.janitor(interval)
	case *MemoryStore:
		go s.janitor(interval)
	}

	Store = store

	slog.Info("Initialized nonce store", "type", cfg.NonceStore)
	return nil
}

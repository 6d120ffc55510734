// Package storage persists users, timesheet entries, access requests and
// session nonces. The schema is managed by embedded SQL migrations.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"employee-timesheet/internal/config"
	"employee-timesheet/internal/timesheet"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type Provider interface {
	timesheet.Store

	Close() error
	GetSchemaVersion(ctx context.Context) (int, error)
	// Migrate moves the schema to version; -1 is the latest.
	Migrate(ctx context.Context, version int) error

	// User methods
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListEmployees(ctx context.Context) ([]User, error)
	SetPassword(ctx context.Context, id int64, passwordHash string) error
	SetAdmin(ctx context.Context, id int64, admin bool) error
	SetActive(ctx context.Context, id int64, active bool) error

	// Access request methods
	CreateAccessRequest(ctx context.Context, req *AccessRequest) error
	GetAccessRequest(ctx context.Context, id int64) (*AccessRequest, error)
	GetAccessRequestByEmail(ctx context.Context, email string) (*AccessRequest, error)
	ListAccessRequests(ctx context.Context, pendingOnly bool) ([]AccessRequest, error)
	MarkAccessRequestReviewed(ctx context.Context, id int64) error

	// Nonce methods
	CreateNonce(ctx context.Context, nonce string, expiresAt time.Time) error
	ExistsNonce(ctx context.Context, nonce string) (bool, error)
	ConsumeNonce(ctx context.Context, nonce string) (bool, error)
	ExpireNonces(ctx context.Context, now time.Time) error
}

// Open connects to the configured database without touching the schema.
func Open(cfg *config.Storage) (Provider, error) {
	switch {
	case cfg != nil && cfg.SQLite != nil:
		return NewSQLiteProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage configuration: %+v", cfg)
	}
}

// NewProvider opens the database and migrates it to the latest schema.
func NewProvider(ctx context.Context, cfg *config.Storage) (Provider, error) {
	provider, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.Migrate(ctx, -1); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		provider.Close()
		return nil, err
	}
	return provider, nil
}

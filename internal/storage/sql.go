package storage

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"employee-timesheet/internal/config"
)

type SQLProvider struct {
	db     *sqlx.DB
	driver string

	config *config.Storage

	// isUnique reports whether err is a unique constraint violation of the driver.
	isUnique func(err error) bool

	logger *slog.Logger
}

func NewSQLProvider(config *config.Storage, driverName string, dataSource string) (*SQLProvider, error) {
	db, err := sqlx.Open(driverName, dataSource)
	if err != nil {
		return nil, err
	}

	return &SQLProvider{
		db:       db,
		driver:   driverName,
		config:   config,
		isUnique: func(error) bool { return false },
		logger:   slog.With("component", "storage", "driver", driverName),
	}, nil
}

func (p *SQLProvider) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

func (p *SQLProvider) GetSchemaVersion(ctx context.Context) (int, error) {
	return NewMigrationRunner(p.db, p.driver).CurrentVersion(ctx)
}

func (p *SQLProvider) Migrate(ctx context.Context, version int) error {
	return NewMigrationRunner(p.db, p.driver).Migrate(ctx, version)
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// requireRow returns ErrNotFound when an UPDATE matched nothing.
func requireRow(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

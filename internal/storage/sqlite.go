package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"employee-timesheet/internal/config"
)

const memoryPath = ":memory:"

type SQLiteProvider struct {
	SQLProvider
}

func NewSQLiteProvider(config *config.Storage) (*SQLiteProvider, error) {
	path := config.SQLite.Path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlProvider, err := NewSQLProvider(config, "sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	// Every connection to :memory: is a separate database.
	if path == memoryPath {
		sqlProvider.db.SetMaxOpenConns(1)
	}
	sqlProvider.isUnique = isSQLiteUnique

	return &SQLiteProvider{SQLProvider: *sqlProvider}, nil
}

func isSQLiteUnique(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

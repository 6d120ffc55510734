// Schema migrations are plain SQL files embedded into the binary under
// migrations/<driver>/.
//
// Migration file naming and format
//   - Filenames must match NNNN_name.up.sql or NNNN_name.down.sql.
//   - Version is a four-digit integer (e.g. 0001, 0002).
//   - Direction is either "up" (apply) or "down" (rollback).
//   - A file may hold several statements; each file is applied in one transaction
//     together with its schema_migrations bookkeeping row.
//
// Adding or removing migration files requires rebuilding the binary.

package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations/**/*.sql
var migrationsFS embed.FS

var reMigrationFilename = regexp.MustCompile(`^(?P<Version>\d{4})\_(?P<Name>[^.]+)\.(?P<Direction>(up|down))\.sql$`)

var (
	ErrMigrateCurrentVersionSameAsTarget = errors.New("current version is the same as target version")
	ErrMigrateUnknownVersion             = errors.New("target version does not exist")
)

const schemaMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT      NOT NULL,
	applied_at TIMESTAMP NOT NULL
)`

// SchemaMigration represents a single database migration
type SchemaMigration struct {
	Version int
	Name    string
	Up      bool
	SQL     string
}

func (m *SchemaMigration) Before() int {
	if m.Up {
		return m.Version - 1
	}
	return m.Version
}

func (m *SchemaMigration) After() int {
	if m.Up {
		return m.Version
	}
	return m.Version - 1
}

// MigrationRunner loads and applies embedded migrations for one driver.
type MigrationRunner struct {
	db     *sqlx.DB
	driver string
	logger *slog.Logger
}

func NewMigrationRunner(db *sqlx.DB, driver string) *MigrationRunner {
	return &MigrationRunner{
		db:     db,
		driver: driver,
		logger: slog.With("component", "migrations", "driver", driver),
	}
}

func (mr *MigrationRunner) dir() (string, error) {
	switch mr.driver {
	case "sqlite3":
		return "migrations/sqlite3", nil
	default:
		return "", fmt.Errorf("unsupported driver: %s", mr.driver)
	}
}

// all parses every migration file of the driver.
func (mr *MigrationRunner) all() ([]SchemaMigration, error) {
	dirPath, err := mr.dir()
	if err != nil {
		return nil, err
	}
	entries, err := migrationsFS.ReadDir(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var migrations []SchemaMigration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		migration, err := parseMigrationFile(migrationsFS, path.Join(dirPath, entry.Name()))
		if err != nil {
			mr.logger.Warn("Failed to parse migration file", "file", entry.Name(), "error", err)
			continue
		}
		migrations = append(migrations, migration)
	}
	return migrations, nil
}

// LatestVersion returns the highest "up" migration version.
func (mr *MigrationRunner) LatestVersion() (int, error) {
	migrations, err := mr.all()
	if err != nil {
		return -1, err
	}
	latest := 0
	for _, m := range migrations {
		if m.Up && m.Version > latest {
			latest = m.Version
		}
	}
	return latest, nil
}

// CurrentVersion returns the highest applied version, 0 for an empty database.
func (mr *MigrationRunner) CurrentVersion(ctx context.Context) (int, error) {
	if _, err := mr.db.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return -1, fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	var version int
	if err := mr.db.GetContext(ctx, &version, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return -1, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

// LoadMigrations returns the migrations leading from prior to target, in the
// order they must run. A target of -1 means the latest version and 0 the empty
// database.
func (mr *MigrationRunner) LoadMigrations(prior int, target int) ([]SchemaMigration, error) {
	latest, err := mr.LatestVersion()
	if err != nil {
		return nil, fmt.Errorf("failed to get latest migration version: %w", err)
	}
	if target == -1 {
		target = latest
		mr.logger.Debug("Target version set to latest", "version", target)
	}
	if target < 0 || target > latest {
		return nil, fmt.Errorf("%w: %d (latest is %d)", ErrMigrateUnknownVersion, target, latest)
	}
	if prior == target {
		return nil, ErrMigrateCurrentVersionSameAsTarget
	}

	all, err := mr.all()
	if err != nil {
		return nil, err
	}

	var migrations []SchemaMigration
	for _, migration := range all {
		if skipMigration(migration, prior, target) {
			continue
		}
		migrations = append(migrations, migration)
	}

	if prior < target {
		sort.Slice(migrations, func(i, j int) bool {
			return migrations[i].Version < migrations[j].Version
		})
	} else {
		sort.Slice(migrations, func(i, j int) bool {
			return migrations[i].Version > migrations[j].Version
		})
	}

	mr.logger.Info("Loaded migrations", "count", len(migrations), "from_version", prior, "to_version", target)
	return migrations, nil
}

// Migrate brings the schema to target (-1 for latest). Already being at the
// target is not an error.
func (mr *MigrationRunner) Migrate(ctx context.Context, target int) error {
	current, err := mr.CurrentVersion(ctx)
	if err != nil {
		return err
	}

	migrations, err := mr.LoadMigrations(current, target)
	if errors.Is(err, ErrMigrateCurrentVersionSameAsTarget) {
		mr.logger.Debug("Schema is up to date", "version", current)
		return nil
	}
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if err := mr.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %04d_%s failed: %w", m.Version, m.Name, err)
		}
		mr.logger.Info("Applied migration", "version", m.Version, "name", m.Name, "up", m.Up, "schema_version", m.After())
	}
	return nil
}

func (mr *MigrationRunner) apply(ctx context.Context, m SchemaMigration) error {
	tx, err := mr.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return err
	}
	if m.Up {
		_, err = tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, time.Now().UTC())
	} else {
		_, err = tx.ExecContext(ctx, `DELETE FROM schema_migrations WHERE version = ?`, m.Version)
	}
	if err != nil {
		return err
	}
	return tx.Commit()
}

func skipMigration(migration SchemaMigration, currentVersion int, targetVersion int) bool {
	if targetVersion > currentVersion {
		// Going up: only up files in (current, target].
		return !migration.Up || migration.Version > targetVersion || migration.Version <= currentVersion
	}
	// Going down: only down files in (target, current].
	return migration.Up || migration.Version <= targetVersion || migration.Version > currentVersion
}

// parseMigrationFile parses a migration filename and reads its content
func parseMigrationFile(fs embed.FS, name string) (SchemaMigration, error) {
	filename := path.Base(name)
	filenameParts := reMigrationFilename.FindStringSubmatch(filename)
	if len(filenameParts) != 5 {
		return SchemaMigration{}, fmt.Errorf("invalid migration filename: %s", filename)
	}

	sql, err := fs.ReadFile(name)
	if err != nil {
		return SchemaMigration{}, fmt.Errorf("failed to read migration file: %w", err)
	}

	version, _ := strconv.Atoi(filenameParts[reMigrationFilename.SubexpIndex("Version")])
	return SchemaMigration{
		Version: version,
		Name:    filenameParts[reMigrationFilename.SubexpIndex("Name")],
		Up:      filenameParts[reMigrationFilename.SubexpIndex("Direction")] == "up",
		SQL:     string(sql),
	}, nil
}

package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrationsTable records the applied schema version
const MigrationsTable = "schema_migrations"

// Migrator applies the schema migrations of the inventory database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// NewFromFS reads migrations from fsys, normally the embedded migrations.FS
func NewFromFS(db *sql.DB, fsys fs.FS, logger *zap.Logger) (*Migrator, error) {
	src, err := iofs.New(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return newMigrator(db, "iofs", src, logger)
}

// NewFromPath reads migrations from a directory on disk
func NewFromPath(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	src, err := (&file.File{}).Open("file://" + dir)
	if err != nil {
		return nil, fmt.Errorf("open migrations directory %s: %w", dir, err)
	}
	return newMigrator(db, "file", src, logger)
}

func newMigrator(db *sql.DB, sourceName string, src source.Driver, logger *zap.Logger) (*Migrator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance(sourceName, src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}
	m.Log = migrateLog{logger: logger.Named("migrate")}
	return &Migrator{migrate: m, logger: logger}, nil
}

// apply runs a schema change, treating "nothing to do" as success, and logs
// the resulting version
func (m *Migrator) apply(op string, change func() error, fields ...zap.Field) error {
	m.logger.Info("Migrating", append(fields, zap.String("op", op))...)

	err := change()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info("Schema already at target", zap.String("op", op))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", op, err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.logger.Info("Migration finished", zap.String("op", op), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	return m.apply("up", m.migrate.Up)
}

// Down rolls every migration back
func (m *Migrator) Down() error {
	return m.apply("down", m.migrate.Down)
}

// Steps applies n migrations; negative n rolls back
func (m *Migrator) Steps(n int) error {
	return m.apply("steps", func() error { return m.migrate.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version
func (m *Migrator) GoTo(version uint) error {
	return m.apply("goto", func() error { return m.migrate.Migrate(version) }, zap.Uint("target_version", version))
}

// Version reports the applied version and whether the last migration failed
// half way. A fresh schema is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force records version as applied and clean without running anything.
// Repair tool for a dirty schema.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

// migrateLog forwards golang-migrate's progress lines to zap at debug
type migrateLog struct {
	logger *zap.Logger
}

func (l migrateLog) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLog) Verbose() bool {
	return l.logger.Core().Enabled(zap.DebugLevel)
}

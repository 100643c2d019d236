package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator wraps golang-migrate with logging and ErrNoChange handling,
// so callers treat an already-current schema as success.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("postgres migrate driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// applied collapses ErrNoChange into (false, nil).
func applied(err error) (bool, error) {
	if errors.Is(err, migrate.ErrNoChange) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	ran, err := applied(m.migrate.Up())
	if err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	if !ran {
		m.logger.Info("schema already current")
		return nil
	}
	m.logVersion("migrations applied")
	return nil
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	ran, err := applied(m.migrate.Down())
	if err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	if !ran {
		m.logger.Info("nothing to roll back")
		return nil
	}
	m.logger.Info("all migrations rolled back")
	return nil
}

// Steps applies n migrations, rolling back when n is negative.
func (m *Migrator) Steps(n int) error {
	ran, err := applied(m.migrate.Steps(n))
	if err != nil {
		return fmt.Errorf("migrate %d steps: %w", n, err)
	}
	if !ran {
		m.logger.Info("schema already current")
		return nil
	}
	m.logVersion("migration steps applied")
	return nil
}

// GoTo migrates up or down until the schema is at the given version.
func (m *Migrator) GoTo(version uint) error {
	ran, err := applied(m.migrate.Migrate(version))
	if err != nil {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	if !ran {
		m.logger.Info("already at target version", zap.Uint("version", version))
		return nil
	}
	m.logVersion("migrated to version")
	return nil
}

// Version reports the current schema version. A fresh database reports
// version 0, not an error.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the recorded version without running migrations. Only for
// repairing a dirty schema_migrations state.
func (m *Migrator) Force(version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	m.logger.Info("schema version forced", zap.Int("version", version))
	return nil
}

// Drop removes every object in the database, including the history tables.
func (m *Migrator) Drop() error {
	m.logger.Warn("dropping all database objects")
	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("drop database: %w", err)
	}
	m.logger.Info("database dropped")
	return nil
}

func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("close migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close migration database: %w", dbErr)
	}
	return nil
}

func (m *Migrator) logVersion(msg string) {
	version, dirty, err := m.migrate.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		m.logger.Warn(msg, zap.Error(err))
		return
	}
	m.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
}

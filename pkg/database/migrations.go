package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver required by golang-migrate
	"go.uber.org/zap"
)

// RunMigrations brings the schema up to date from the migration files in
// migrationsPath. golang-migrate needs a database/sql handle, so a short-lived
// connection is opened here; the pgx pool never sees migration traffic.
// Idempotent: an up-to-date schema is a no-op, not an error.
func RunMigrations(dsn, migrationsPath string, logger *zap.Logger) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer func() {
		// Close tears down both the file source and the sql.DB handle.
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			logger.Warn("Migration cleanup failed",
				zap.NamedError("source", srcErr),
				zap.NamedError("database", dbErr))
		}
	}()

	before, _, _ := m.Version()

	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Debug("Schema already up to date", zap.Uint("version", before))
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, dirty, _ := m.Version()
	if dirty {
		return fmt.Errorf("schema left dirty at version %d", after)
	}
	logger.Info("Schema migrated", zap.Uint("from", before), zap.Uint("to", after))
	return nil
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// RunMigrations applies every pending migration found at sourceURL to the database at dsn.
// An already up-to-date schema is not an error.
func RunMigrations(sourceURL, dsn string) error {
	const op = "postgres.RunMigrations"

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("%s: failed to initialize migrations: %w", op, err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("%s: failed to apply migrations: %w", op, err)
	}

	return nil
}

package repository

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/golang-migrate/migrate/v4/database/postgres"
)

//go:embed migrations
var migrationFiles embed.FS

// Migrate applies all pending up migrations for the store's dialect.
func Migrate(s *Store, url string) error {
	source, err := iofs.New(migrationFiles, "migrations/"+string(s.dialect))
	if err != nil {
		return err
	}

	var migrator *migrate.Migrate
	switch s.dialect {
	case DialectPostgres:
		migrator, err = migrate.NewWithSourceInstance("iofs", source, url)
		if err != nil {
			return err
		}
		defer migrator.Close()
	case DialectSQLite:
		// The driver must reuse the pool so in-memory databases see the schema.
		// Closing the migrator would close the pool, so it is left open.
		driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
		if err != nil {
			return err
		}
		migrator, err = migrate.NewWithInstance("iofs", source, string(DialectSQLite), driver)
		if err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

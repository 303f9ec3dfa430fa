package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations brings the watcher schema up to date:
//
//	projects       repo_id PK, last_refreshed (NULL until the first pass)
//	pull_requests  (repo_id, number) PK, author, created/updated/analyzed times, ntp, tp
//	users          login PK, email ('' when none was found)
//
// Times are stored as RFC 3339 text. Already-applied migrations are skipped,
// so it runs on every start.
func RunMigrations(db *sql.DB) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	target, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("prepare sqlite migration target: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", target)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate watcher schema: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil {
		slog.Debug("watcher schema ready", "version", version, "dirty", dirty)
	}

	return nil
}

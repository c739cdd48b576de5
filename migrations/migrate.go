// Package migrations ships the shared, queue-independent schema objects
// (the job_state enum and the update_modified_column trigger function) as
// goose migrations, for applications that migrate their schema up front.
// Per-queue tables, indexes, and triggers are table-named and therefore
// created at runtime by client.Client.InitQueueData instead — that path
// also runs standalone, so the library works even when a caller never
// invokes Up.
package migrations

import (
	"database/sql"

	"github.com/pkg/errors"
	"github.com/pressly/goose"
)

// Up runs every pending migration in this package's directory against db.
// dir is the filesystem path to this package's .sql files.
func Up(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "migrations: set dialect")
	}
	if err := goose.Up(db, dir); err != nil {
		return errors.Wrap(err, "migrations: up")
	}
	return nil
}

// Down rolls back the most recently applied migration in dir.
func Down(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, "migrations: set dialect")
	}
	if err := goose.Down(db, dir); err != nil {
		return errors.Wrap(err, "migrations: down")
	}
	return nil
}

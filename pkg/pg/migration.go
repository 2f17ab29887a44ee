package pg

import (
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir.
func Migrate(cfg Config, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if err = goose.Up(db, dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// MigrationStatus logs the applied state of every migration in dir.
func MigrationStatus(cfg Config, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := newSqlConnection(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.Status(db, dir)
}

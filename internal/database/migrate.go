// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Direction selects what Migrate does.
type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Reset Direction = "reset"
)

func prepareGoose() error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	return goose.SetDialect("sqlite3")
}

// RunMigrations runs all pending goose migrations.
func RunMigrations(db *sql.DB) error {
	return Migrate(db, Up)
}

// Migrate applies migrations in the given direction.
func Migrate(db *sql.DB, dir Direction) error {
	if err := prepareGoose(); err != nil {
		return err
	}

	switch dir {
	case Up:
		return goose.Up(db, "migrations")
	case Down:
		return goose.Down(db, "migrations")
	case Reset:
		return goose.Reset(db, "migrations")
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
}

// Version returns the current schema version.
func Version(db *sql.DB) (int64, error) {
	if err := prepareGoose(); err != nil {
		return 0, err
	}
	return goose.GetDBVersion(db)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/bananalabs-oss/stocking/internal/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func Connect(databaseURL string) (*bun.DB, error) {
	path := strings.TrimPrefix(databaseURL, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path in %q", databaseURL)
	}

	dsn := path + "?" + pragmas
	if strings.Contains(path, "?") {
		dsn = path + "&" + pragmas
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// One writer connection serializes every transaction, which is what the
	// claim and draw compare-and-set paths rely on.
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Connected to SQLite: %s", path)
	return db, nil
}

func Migrate(ctx context.Context, db *bun.DB) error {
	log.Printf("Running database migrations...")

	tables := []interface{}{
		(*models.Room)(nil),
		(*models.Participant)(nil),
		(*models.Exclusion)(nil),
		(*models.Assignment)(nil),
	}

	for _, model := range tables {
		_, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}

	indexes := []struct {
		name  string
		query string
	}{
		{
			"idx_participants_room_name",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_participants_room_name ON participants (room_code, name_key)",
		},
		{
			"idx_participants_device",
			"CREATE INDEX IF NOT EXISTS idx_participants_device ON participants (claimant_device, claimed_at)",
		},
		{
			"idx_exclusions_edge",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_exclusions_edge ON exclusions (room_code, giver_id, receiver_id)",
		},
		{
			"idx_assignments_receiver",
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_receiver ON assignments (room_code, receiver_id)",
		},
	}

	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx.query); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	log.Printf("Migrations complete")
	return nil
}

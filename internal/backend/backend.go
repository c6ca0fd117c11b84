// Package backend selects the persistence collaborator once at startup.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/bananalabs-oss/stocking/internal/database"
	"github.com/bananalabs-oss/stocking/internal/pgstore"
	"github.com/bananalabs-oss/stocking/internal/store"
)

type Kind string

const (
	KindSQLite   Kind = "sqlite"
	KindPostgres Kind = "postgres"
)

// KindOf classifies a DATABASE_URL by scheme.
func KindOf(databaseURL string) (Kind, error) {
	switch {
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return KindSQLite, nil
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return KindPostgres, nil
	}
	return "", fmt.Errorf("unsupported database url %q (want sqlite:// or postgres://)", databaseURL)
}

// Open connects, migrates and returns the store for databaseURL.
func Open(ctx context.Context, databaseURL string) (store.Store, Kind, error) {
	kind, err := KindOf(databaseURL)
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case KindPostgres:
		db, err := pgstore.Open(databaseURL)
		if err != nil {
			return nil, kind, err
		}
		if err := pgstore.Migrate(db.WithContext(ctx)); err != nil {
			return nil, kind, fmt.Errorf("failed to run migrations: %w", err)
		}
		return pgstore.New(db), kind, nil
	default:
		db, err := database.Connect(databaseURL)
		if err != nil {
			return nil, kind, err
		}
		if err := database.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, kind, fmt.Errorf("failed to run migrations: %w", err)
		}
		return database.NewStore(db), kind, nil
	}
}

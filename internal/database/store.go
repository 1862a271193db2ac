// Package database opens the persistent backends for the face gallery.
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/doorlock/internal/config"
	"github.com/kozaktomas/doorlock/internal/database/mariadb"
	"github.com/kozaktomas/doorlock/internal/database/postgres"
	"github.com/kozaktomas/doorlock/internal/gallery"
)

// Store drivers accepted by Open.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StorePostgres = "postgres"
	StoreMariaDB  = "mariadb"
)

// Store is a gallery.Store that holds resources until closed.
type Store interface {
	gallery.Store
	Close() error
}

// Open returns the configured gallery store. The memory driver has no store
// and returns nil.
func Open(ctx context.Context, cfg config.GalleryConfig) (Store, error) {
	switch cfg.Store {
	case StoreMemory, "":
		return nil, nil
	case StoreFile:
		if cfg.Path == "" {
			return nil, errors.New("gallery path is required for the file store")
		}
		return NewFileStore(cfg.Path), nil
	case StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		return postgres.NewTemplateRepository(pool), nil
	case StoreMariaDB:
		pool, err := mariadb.NewPool(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create gallery table: %w", err)
		}
		return mariadb.NewTemplateRepository(pool), nil
	default:
		return nil, fmt.Errorf("unknown gallery store %q", cfg.Store)
	}
}

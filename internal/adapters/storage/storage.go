// Package storage choisit le driver du store de documents.
package storage

import (
	"context"
	"fmt"

	"github.com/yemenflix/yflix/internal/adapters/jsonfile"
	"github.com/yemenflix/yflix/internal/adapters/sqlite"
	"github.com/yemenflix/yflix/internal/config"
	"github.com/yemenflix/yflix/internal/ports"
)

// Open ouvre le store décrit par cfg. Pour sqlite, les migrations sont
// appliquées à l'ouverture.
func Open(ctx context.Context, cfg config.StoreConfig) (ports.DocumentStore, error) {
	switch cfg.Driver {
	case "json", "":
		store, err := jsonfile.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", cfg.Path, err)
		}
		return store, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
		}
		return sqlite.NewDocumentStore(db), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

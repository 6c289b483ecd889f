package store

import (
	"context"
	"fmt"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
)

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	var s Store
	switch cfg.Driver {
	case "postgres":
		pg, err := NewPostgresStore(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		s = pg
	case "sqlite", "":
		lite, err := NewSQLiteStore(ctx, cfg.Path)
		if err != nil {
			return nil, err
		}
		s = lite
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

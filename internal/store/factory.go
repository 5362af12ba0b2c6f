package store

import (
	"context"
	"fmt"

	"github.com/xenocrm/crm-backend/internal/config"
	"github.com/xenocrm/crm-backend/internal/db"
)

// NewStore creates a Store based on the configured STORE_TYPE.
//
// Supported types:
//   - "memory": in-memory store, data lost on restart
//   - "postgres": PostgreSQL-backed store, requires DB_DSN
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreType {
	case "memory":
		return NewMemoryStore(), nil
	case "postgres":
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("create postgres pool: %w", err)
		}
		st, err := NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %q (must be 'memory' or 'postgres')", cfg.StoreType)
	}
}

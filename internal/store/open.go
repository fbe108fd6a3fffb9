package store

import (
	"context"
	"fmt"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/migrations"

	"go.uber.org/zap"
)

// Open builds the Ledger selected by cfg.Storage.Driver. The postgres driver
// applies pending migrations first; the memory driver starts from the demo
// seed. The returned close func releases the underlying resources.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.Ledger, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		mem := NewMemory()
		if err := Seed(ctx, mem); err != nil {
			return nil, nil, err
		}
		logger.Info("using in-memory ledger with demo data")
		return mem, func() {}, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return NewPostgres(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

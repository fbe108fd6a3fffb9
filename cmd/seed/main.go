// seed loads the demo warehouses, products and allocations into the
// configured database. Safe to re-run: allocation rows are reset to the demo
// values.
//
// Usage: go run ./cmd/seed
package main

import (
	"context"
	"log"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store"
	"inventory-ledger/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(config.LogConfig{Level: "info", Format: "console"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
		log.Fatalf("Failed to migrate: %v", err)
	}

	log.Println("Seeding demo inventory...")
	if err := store.Seed(ctx, store.NewPostgres(pool)); err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Println("Seed restored successfully.")
}

// migrate applies pending schema migrations from the embedded migrations
// directory. Each NNN_description.sql file runs once; a changed file that was
// already applied aborts the run.
//
// Usage: go run ./cmd/migrate
package main

import (
	"context"
	"log"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/logging"
	"inventory-ledger/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(config.LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.Files, logger); err != nil {
		pool.Close()
		log.Fatalf("[MIGRATE] %v", err)
	}
	log.Println("[DONE] All migrations processed.")
}

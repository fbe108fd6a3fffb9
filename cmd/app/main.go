package main

import (
	"context"
	"log"
	"os"

	"inventory-ledger/internal/adapters/cli"
	"inventory-ledger/internal/app"
	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/logging"
	"inventory-ledger/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg.Log.Format = "console"
	if cfg.Log.Level == "info" {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	ledger, closeLedger, err := store.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Unable to open ledger: %v", err)
	}
	defer closeLedger()

	svc, _ := app.NewFromLedger(ledger, cfg.Scheduler.Interval, cfg.Scheduler.BatchSize, core.WithLogger(logger))

	if err := cli.Run(ctx, svc, os.Args[1:], os.Stdout); err != nil {
		closeLedger()
		log.Fatal(err)
	}
}

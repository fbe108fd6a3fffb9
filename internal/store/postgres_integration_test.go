package store_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/db"
	"inventory-ledger/internal/store"
	"inventory-ledger/migrations"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Integration tests truncate every ledger table, so they only run against
	// a dedicated database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, dbURL, 10)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, migrations.Files, zap.NewNop()))
	_, err = pool.Exec(ctx, `TRUNCATE TABLE transfer_records, allocation_records, products, warehouses CASCADE`)
	require.NoError(t, err)
	return pool
}

func TestPostgres_SeedAndSummary(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	ledger := store.NewPostgres(pool)

	require.NoError(t, store.Seed(ctx, ledger))
	require.NoError(t, store.Seed(ctx, ledger), "seed is repeatable")

	warehouses, err := ledger.ListWarehouses(ctx)
	require.NoError(t, err)
	assert.Len(t, warehouses, 4)

	rec, err := ledger.GetAllocation(ctx, core.AllocationKey{ProductID: "P-1001", WarehouseID: "WH-CENTRAL"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1200), rec.AllocatedQuantity)
	assert.Equal(t, int64(1100), rec.Available())

	stocked, err := ledger.StockedWarehouses(ctx, "P-1004")
	require.NoError(t, err)
	assert.Equal(t, []string{"WH-CENTRAL"}, stocked, "inactive warehouses are never offered as a source")

	_, err = ledger.GetWarehouse(ctx, "WH-NOPE")
	assert.True(t, core.IsNotFound(err))
}

func TestPostgres_DuplicateSKU(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	ledger := store.NewPostgres(pool)

	require.NoError(t, ledger.SaveProduct(ctx, core.Product{ID: "P1", BusinessID: "acme", Name: "A", SKU: "SKU-1"}))
	assert.Error(t, ledger.SaveProduct(ctx, core.Product{ID: "P2", BusinessID: "acme", Name: "B", SKU: "SKU-1"}))
}

func TestPostgres_ConcurrentTransfersNeverOverdraw(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	ledger := store.NewPostgres(pool)

	require.NoError(t, ledger.SaveWarehouse(ctx, core.Warehouse{ID: "W1", Name: "North"}))
	require.NoError(t, ledger.SaveWarehouse(ctx, core.Warehouse{ID: "W2", Name: "South"}))
	require.NoError(t, ledger.SaveProduct(ctx, core.Product{ID: "P1", Name: "Widget", SKU: "WID-1", UnitPrice: decimal.NewFromInt(2)}))
	_, err := ledger.UpsertDelta(ctx, core.AllocationKey{ProductID: "P1", WarehouseID: "W1"},
		core.AllocationDelta{Quantity: 100, SafetyStock: 20})
	require.NoError(t, err)

	transfers := core.NewTransferService(ledger)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := transfers.CreateTransfer(ctx, core.TransferRequest{
				FromWarehouseID: "W1",
				ToWarehouseID:   "W2",
				ProductID:       "P1",
				Quantity:        decimal.NewFromInt(10),
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, succeeded)
	src, err := ledger.GetAllocation(ctx, core.AllocationKey{ProductID: "P1", WarehouseID: "W1"})
	require.NoError(t, err)
	dst, err := ledger.GetAllocation(ctx, core.AllocationKey{ProductID: "P1", WarehouseID: "W2"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), src.AllocatedQuantity)
	assert.Equal(t, int64(80), dst.AllocatedQuantity)

	completed, err := ledger.ListTransfers(ctx, core.TransferFilter{Status: core.TransferCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 8)
}

func TestPostgres_ScheduledTransferLifecycle(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	ledger := store.NewPostgres(pool)

	require.NoError(t, ledger.SaveWarehouse(ctx, core.Warehouse{ID: "W1", Name: "North"}))
	require.NoError(t, ledger.SaveWarehouse(ctx, core.Warehouse{ID: "W2", Name: "South"}))
	require.NoError(t, ledger.SaveProduct(ctx, core.Product{ID: "P1", Name: "Widget", SKU: "WID-1"}))
	_, err := ledger.UpsertDelta(ctx, core.AllocationKey{ProductID: "P1", WarehouseID: "W1"},
		core.AllocationDelta{Quantity: 50})
	require.NoError(t, err)

	now := time.Now().UTC()
	clock := func() time.Time { return now }
	transfers := core.NewTransferService(ledger, core.WithClock(clock))

	when := now.Add(time.Hour)
	res, err := transfers.CreateTransfer(ctx, core.TransferRequest{
		FromWarehouseID: "W1",
		ToWarehouseID:   "W2",
		ProductID:       "P1",
		Quantity:        decimal.NewFromInt(30),
		Priority:        core.PriorityHigh,
		ScheduledDate:   &when,
	})
	require.NoError(t, err)
	require.Equal(t, core.TransferPending, res.Transfer.Status)

	due, err := ledger.DueTransfers(ctx, now, 10)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = ledger.DueTransfers(ctx, when.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, due, 1)

	done, err := transfers.ExecutePending(ctx, res.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCompleted, done.Transfer.Status)
	assert.Equal(t, int64(20), done.Source.AllocatedQuantity)

	_, err = transfers.ExecutePending(ctx, res.Transfer.ID)
	assert.ErrorIs(t, err, core.ErrTransferNotPending)
}

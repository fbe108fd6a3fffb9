package store

import (
	"context"
	"fmt"

	"inventory-ledger/internal/core"

	"github.com/shopspring/decimal"
)

type seedAllocation struct {
	product, warehouse            string
	quantity, safety, reorder, max int64
}

var (
	seedWarehouses = []core.Warehouse{
		{ID: "WH-CENTRAL", Name: "Central Distribution", Region: "midwest", Capacity: 50000},
		{ID: "WH-EAST", Name: "East Coast Fulfilment", Region: "east", Capacity: 20000},
		{ID: "WH-WEST", Name: "West Coast Fulfilment", Region: "west", Capacity: 20000},
		{ID: "WH-LEGACY", Name: "Legacy Overflow", Region: "east", Capacity: 5000, Status: core.WarehouseInactive},
	}

	seedProducts = []core.Product{
		{ID: "P-1001", BusinessID: "demo", Name: "Steel Shelf Bracket", SKU: "SSB-100", WeightKg: decimal.RequireFromString("0.450"), Dimensions: "10x4x2 cm", UnitPrice: decimal.RequireFromString("3.20")},
		{ID: "P-1002", BusinessID: "demo", Name: "Oak Shelf Board", SKU: "OSB-900", WeightKg: decimal.RequireFromString("4.100"), Dimensions: "90x25x2 cm", UnitPrice: decimal.RequireFromString("24.90")},
		{ID: "P-1003", BusinessID: "demo", Name: "Wall Anchor Kit", SKU: "WAK-012", WeightKg: decimal.RequireFromString("0.120"), Dimensions: "8x6x2 cm", UnitPrice: decimal.RequireFromString("5.75")},
		{ID: "P-1004", BusinessID: "demo", Name: "Cabinet Hinge", SKU: "CHG-035", WeightKg: decimal.RequireFromString("0.080"), Dimensions: "5x3x1 cm", UnitPrice: decimal.RequireFromString("1.95")},
	}

	seedAllocations = []seedAllocation{
		{"P-1001", "WH-CENTRAL", 1200, 100, 200, 1300},
		{"P-1001", "WH-EAST", 150, 20, 160, 800},
		{"P-1002", "WH-CENTRAL", 300, 30, 50, 600},
		{"P-1002", "WH-WEST", 0, 10, 20, 200},
		{"P-1003", "WH-EAST", 500, 50, 100, 2000},
		{"P-1003", "WH-WEST", 40, 40, 60, 500},
		{"P-1004", "WH-CENTRAL", 2500, 200, 400, 5000},
		{"P-1004", "WH-LEGACY", 75, 0, 0, 0},
	}
)

// Seed loads the demo catalog and allocations. Allocation rows are replaced
// with the demo values, so running it twice gives the same state.
func Seed(ctx context.Context, ledger core.Ledger) error {
	for _, w := range seedWarehouses {
		if err := ledger.SaveWarehouse(ctx, w); err != nil {
			return fmt.Errorf("failed to seed warehouse %s: %w", w.ID, err)
		}
	}
	for _, p := range seedProducts {
		if err := ledger.SaveProduct(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}

	return ledger.WithTx(ctx, func(tx core.LedgerTx) error {
		for _, a := range seedAllocations {
			key := core.AllocationKey{ProductID: a.product, WarehouseID: a.warehouse}
			current, err := tx.ApplyDelta(ctx, key, core.AllocationDelta{})
			if err != nil {
				return fmt.Errorf("failed to seed allocation %s: %w", key, err)
			}
			if _, err := tx.ApplyDelta(ctx, key, core.AllocationDelta{
				Quantity: a.quantity - current.AllocatedQuantity,
				Policy:   core.RejectNegative,
			}); err != nil {
				return fmt.Errorf("failed to seed allocation %s: %w", key, err)
			}
			if _, err := tx.SetThresholds(ctx, key, core.Thresholds{SafetyStock: a.safety, ReorderPoint: a.reorder, MaxStock: a.max}); err != nil {
				return fmt.Errorf("failed to seed thresholds %s: %w", key, err)
			}
		}
		return nil
	})
}

package core_test

import (
	"math"
	"testing"

	"inventory-ledger/internal/core"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		rec           core.AllocationRecord
		wantStatus    core.StockStatus
		wantAvailable int64
	}{
		{
			name:       "empty row is out of stock even with zero reorder point",
			rec:        core.AllocationRecord{},
			wantStatus: core.OutOfStock,
		},
		{
			name:       "zero allocation beats low stock",
			rec:        core.AllocationRecord{ReorderPoint: 10},
			wantStatus: core.OutOfStock,
		},
		{
			name:          "at reorder point is low stock",
			rec:           core.AllocationRecord{AllocatedQuantity: 10, ReorderPoint: 10, MaxStock: 100},
			wantStatus:    core.LowStock,
			wantAvailable: 10,
		},
		{
			name:          "one above reorder point is in stock",
			rec:           core.AllocationRecord{AllocatedQuantity: 11, ReorderPoint: 10, MaxStock: 100},
			wantStatus:    core.InStock,
			wantAvailable: 11,
		},
		{
			name:          "exactly ninety percent of max is overstock",
			rec:           core.AllocationRecord{AllocatedQuantity: 90, ReorderPoint: 10, MaxStock: 100},
			wantStatus:    core.Overstock,
			wantAvailable: 90,
		},
		{
			name:          "just under ninety percent is in stock",
			rec:           core.AllocationRecord{AllocatedQuantity: 89, ReorderPoint: 10, MaxStock: 100},
			wantStatus:    core.InStock,
			wantAvailable: 89,
		},
		{
			name:          "450 of 500 is overstock",
			rec:           core.AllocationRecord{AllocatedQuantity: 450, MaxStock: 500},
			wantStatus:    core.Overstock,
			wantAvailable: 450,
		},
		{
			name:          "ceiling not divisible by ten rounds the threshold up",
			rec:           core.AllocationRecord{AllocatedQuantity: 85, MaxStock: 95},
			wantStatus:    core.InStock,
			wantAvailable: 85,
		},
		{
			name:          "ninety percent of an odd ceiling is overstock",
			rec:           core.AllocationRecord{AllocatedQuantity: 86, MaxStock: 95},
			wantStatus:    core.Overstock,
			wantAvailable: 86,
		},
		{
			name:          "very large allocation is still overstock",
			rec:           core.AllocationRecord{AllocatedQuantity: math.MaxInt64 / 5, MaxStock: 100},
			wantStatus:    core.Overstock,
			wantAvailable: math.MaxInt64 / 5,
		},
		{
			name:          "low stock wins over overstock",
			rec:           core.AllocationRecord{AllocatedQuantity: 5, ReorderPoint: 5, MaxStock: 5},
			wantStatus:    core.LowStock,
			wantAvailable: 5,
		},
		{
			name:          "no max stock configured never overstocks",
			rec:           core.AllocationRecord{AllocatedQuantity: 1000},
			wantStatus:    core.InStock,
			wantAvailable: 1000,
		},
		{
			name:          "safety stock above allocation clamps available",
			rec:           core.AllocationRecord{AllocatedQuantity: 20, SafetyStock: 30, ReorderPoint: 5},
			wantStatus:    core.InStock,
			wantAvailable: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := core.Classify(tt.rec)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
			if got.Available != tt.wantAvailable {
				t.Errorf("available = %d, want %d", got.Available, tt.wantAvailable)
			}
		})
	}
}

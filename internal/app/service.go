package app

import (
	"context"

	"inventory-ledger/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// ListWarehouses returns every warehouse with its current total allocation.
	ListWarehouses(ctx context.Context) (*WarehouseListResult, error)

	// ListWarehouseProducts returns the classified stock lines of one warehouse.
	ListWarehouseProducts(ctx context.Context, warehouseID string) (*WarehouseStockResult, error)

	// GetSummary aggregates all allocations, or one warehouse's when warehouseID is non-empty.
	GetSummary(ctx context.Context, warehouseID string) (*core.InventorySummary, error)

	// AdjustStock applies a receipt or correction to one allocation row, clamping at zero.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.AllocationSnapshot, error)

	// SetThresholds replaces the safety stock, reorder point and max stock of one row.
	SetThresholds(ctx context.Context, req SetThresholdsRequest) (*core.AllocationSnapshot, error)

	// CreateTransfer validates and applies a stock move, or queues it when scheduled in the future.
	CreateTransfer(ctx context.Context, req CreateTransferRequest) (*core.TransferResult, error)

	// GetTransfer returns one transfer record.
	GetTransfer(ctx context.Context, id string) (*core.TransferRecord, error)

	// ListTransfers returns transfer records, newest first.
	ListTransfers(ctx context.Context, filter core.TransferFilter) (*TransferListResult, error)

	// RunScheduledTransfers executes every pending transfer whose scheduled date has passed.
	RunScheduledTransfers(ctx context.Context) (*core.SweepResult, error)

	// ProposeBulkMove validates a bulk move without changing stock.
	ProposeBulkMove(ctx context.Context, req BulkMoveRequest) (*core.BulkMoveProposal, error)

	// ConfirmBulkMove executes a bulk move item by item. Failed items do not revert moved ones.
	ConfirmBulkMove(ctx context.Context, req BulkMoveRequest) (*core.BulkMoveResult, error)
}

package core

import (
	"context"
	"math"
	"time"
)

// DeltaPolicy decides what happens when a delta would drive a quantity below zero.
type DeltaPolicy int

const (
	// ClampAtZero floors the result at zero. Used for operator adjustments.
	ClampAtZero DeltaPolicy = iota
	// RejectNegative leaves the record untouched and returns ErrNegativeAllocation.
	// Transfers apply their deltas this way after pre-validating availability.
	RejectNegative
)

// AllocationDelta is a signed change to one allocation record.
type AllocationDelta struct {
	Quantity    int64
	SafetyStock int64
	Policy      DeltaPolicy
}

// ApplyDelta computes the record that results from applying d to current.
// A nil current means the row does not exist yet; it is created for key with
// both fields floored at zero. A sum beyond the int64 range returns
// ErrQuantityOverflow under either policy. It is shared by every Ledger implementation so
// clamping behaves the same everywhere.
func ApplyDelta(key AllocationKey, current *AllocationRecord, d AllocationDelta, now time.Time) (AllocationRecord, error) {
	next := AllocationRecord{ProductID: key.ProductID, WarehouseID: key.WarehouseID}
	if current != nil {
		next = *current
	}

	if addOverflows(next.AllocatedQuantity, d.Quantity) || addOverflows(next.SafetyStock, d.SafetyStock) {
		return AllocationRecord{}, ErrQuantityOverflow
	}
	qty := next.AllocatedQuantity + d.Quantity
	safety := next.SafetyStock + d.SafetyStock
	if qty < 0 || safety < 0 {
		if d.Policy == RejectNegative {
			return AllocationRecord{}, ErrNegativeAllocation
		}
		qty = max(qty, 0)
		safety = max(safety, 0)
	}

	next.AllocatedQuantity = qty
	next.SafetyStock = safety
	next.LastUpdated = now
	return next, nil
}

// addOverflows reports whether a+b falls outside the int64 range.
func addOverflows(a, b int64) bool {
	return (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b)
}

// Ledger is the allocation record store plus the warehouse/product catalog and
// transfer history it references.
//
// Read methods observe committed state only. Mutations go through WithTx, where
// the whole callback commits or nothing does.
type Ledger interface {
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	// GetWarehouse returns a *NotFoundError when the warehouse does not exist.
	GetWarehouse(ctx context.Context, id string) (*Warehouse, error)
	SaveWarehouse(ctx context.Context, w Warehouse) error

	ListProducts(ctx context.Context) ([]Product, error)
	// GetProduct returns a *NotFoundError when the product does not exist.
	GetProduct(ctx context.Context, id string) (*Product, error)
	SaveProduct(ctx context.Context, p Product) error

	// GetAllocation returns nil, nil when the row has never been created.
	GetAllocation(ctx context.Context, key AllocationKey) (*AllocationRecord, error)
	// ListAllocations returns rows ordered by product ID, then warehouse ID.
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]AllocationRecord, error)
	// StockedWarehouses lists active warehouses, ordered by ID, that hold
	// AllocatedQuantity > 0 of the product.
	StockedWarehouses(ctx context.Context, productID string) ([]string, error)
	// UpsertDelta applies d atomically to a single row, creating it if absent.
	UpsertDelta(ctx context.Context, key AllocationKey, d AllocationDelta) (*AllocationRecord, error)

	GetTransfer(ctx context.Context, id string) (*TransferRecord, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]TransferRecord, error)
	// DueTransfers lists pending transfers scheduled at or before asOf, best
	// priority first, then earliest schedule, then earliest creation.
	DueTransfers(ctx context.Context, asOf time.Time, limit int) ([]TransferRecord, error)

	WithTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// LedgerTx is a unit of work. Rows read through LockAllocation stay locked
// until the unit commits or rolls back, so availability re-checked here holds
// at commit.
type LedgerTx interface {
	// LockAllocation returns nil, nil when the row does not exist.
	LockAllocation(ctx context.Context, key AllocationKey) (*AllocationRecord, error)
	ApplyDelta(ctx context.Context, key AllocationKey, d AllocationDelta) (*AllocationRecord, error)
	SetThresholds(ctx context.Context, key AllocationKey, t Thresholds) (*AllocationRecord, error)

	InsertTransfer(ctx context.Context, t *TransferRecord) error
	// LockTransfer returns a *NotFoundError when the transfer does not exist.
	LockTransfer(ctx context.Context, id string) (*TransferRecord, error)
	// FinishTransfer moves a pending transfer to completed or failed.
	FinishTransfer(ctx context.Context, id string, status TransferStatus, failureReason string, at time.Time) error
}

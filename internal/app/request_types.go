package app

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateTransferRequest is the input for a single warehouse-to-warehouse move.
type CreateTransferRequest struct {
	FromWarehouseID string
	ToWarehouseID   string
	ProductID       string
	Quantity        decimal.Decimal
	Priority        string // empty means normal
	Reason          string // empty means rebalance
	Notes           string
	ScheduledDate   *time.Time
	RequestedBy     string
}

// AdjustStockRequest changes one allocation row outside of a transfer.
type AdjustStockRequest struct {
	ProductID        string
	WarehouseID      string
	QuantityDelta    int64
	SafetyStockDelta int64
	Reason           string
}

// SetThresholdsRequest replaces the configured stock levels of one allocation row.
type SetThresholdsRequest struct {
	ProductID    string
	WarehouseID  string
	SafetyStock  int64
	ReorderPoint int64
	MaxStock     int64
}

// BulkMoveRequest moves several products into one target warehouse.
type BulkMoveRequest struct {
	TargetWarehouseID string
	Items             []BulkMoveItem
	Priority          string
	Reason            string
	Notes             string
	RequestedBy       string
}

// BulkMoveItem is a single product line within a BulkMoveRequest.
type BulkMoveItem struct {
	ProductID         string
	SourceWarehouseID string // empty lets the coordinator pick the source
	Quantity          decimal.Decimal
}

package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type WarehouseStatus string

const (
	WarehouseActive   WarehouseStatus = "active"
	WarehouseInactive WarehouseStatus = "inactive"
)

// Warehouse is a physical storage location. Warehouses are administered
// outside the ledger and referenced by ID.
type Warehouse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Region    string          `json:"region"`
	Capacity  int64           `json:"capacity"`
	Status    WarehouseStatus `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// IsActive reports whether the warehouse accepts and releases stock.
func (w Warehouse) IsActive() bool {
	return w.Status == WarehouseActive
}

// Product is a sellable item owned by a business. SKU is unique per business.
type Product struct {
	ID         string          `json:"id"`
	BusinessID string          `json:"business_id"`
	Name       string          `json:"name"`
	SKU        string          `json:"sku"`
	WeightKg   decimal.Decimal `json:"weight_kg"`
	Dimensions string          `json:"dimensions"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

// AllocationKey identifies one allocation row.
type AllocationKey struct {
	ProductID   string
	WarehouseID string
}

func (k AllocationKey) String() string {
	return k.ProductID + "@" + k.WarehouseID
}

// AllocationRecord is the per (product, warehouse) stock state.
// SafetyStock may exceed AllocatedQuantity; Available clamps instead of failing.
type AllocationRecord struct {
	ProductID         string    `json:"product_id"`
	WarehouseID       string    `json:"warehouse_id"`
	AllocatedQuantity int64     `json:"allocated_quantity"`
	SafetyStock       int64     `json:"safety_stock"`
	ReorderPoint      int64     `json:"reorder_point"`
	MaxStock          int64     `json:"max_stock"`
	LastUpdated       time.Time `json:"last_updated"`
}

func (r AllocationRecord) Key() AllocationKey {
	return AllocationKey{ProductID: r.ProductID, WarehouseID: r.WarehouseID}
}

// Available is allocation minus safety stock, never below zero.
func (r AllocationRecord) Available() int64 {
	if avail := r.AllocatedQuantity - r.SafetyStock; avail > 0 {
		return avail
	}
	return 0
}

// AllocationSnapshot is a classified allocation record handed back to callers
// after a mutation so they can update their view without re-querying.
type AllocationSnapshot struct {
	AllocationRecord
	Available int64       `json:"available"`
	Status    StockStatus `json:"status"`
}

// Snapshot classifies r.
func Snapshot(r AllocationRecord) AllocationSnapshot {
	c := Classify(r)
	return AllocationSnapshot{AllocationRecord: r, Available: c.Available, Status: c.Status}
}

// Thresholds are the operator-configured stock levels of one allocation row.
type Thresholds struct {
	SafetyStock  int64 `json:"safety_stock"`
	ReorderPoint int64 `json:"reorder_point"`
	MaxStock     int64 `json:"max_stock"`
}

type TransferPriority string

const (
	PriorityLow    TransferPriority = "low"
	PriorityNormal TransferPriority = "normal"
	PriorityHigh   TransferPriority = "high"
	PriorityUrgent TransferPriority = "urgent"
)

// Rank orders priorities for the scheduled sweep; higher runs first.
func (p TransferPriority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 3
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	default:
		return 0
	}
}

func (p TransferPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type TransferReason string

const (
	ReasonRebalance     TransferReason = "rebalance"
	ReasonReplenishment TransferReason = "replenishment"
	ReasonDemand        TransferReason = "demand"
	ReasonConsolidation TransferReason = "consolidation"
	ReasonReturn        TransferReason = "return"
	ReasonOther         TransferReason = "other"
)

func (r TransferReason) Valid() bool {
	switch r {
	case ReasonRebalance, ReasonReplenishment, ReasonDemand, ReasonConsolidation, ReasonReturn, ReasonOther:
		return true
	}
	return false
}

type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferCompleted, TransferFailed:
		return true
	}
	return false
}

// TransferRecord is a single source-to-destination stock move.
// Status only moves pending→completed or pending→failed.
type TransferRecord struct {
	ID              string           `json:"id"`
	FromWarehouseID string           `json:"from_warehouse_id"`
	ToWarehouseID   string           `json:"to_warehouse_id"`
	ProductID       string           `json:"product_id"`
	Quantity        int64            `json:"quantity"`
	Priority        TransferPriority `json:"priority"`
	Reason          TransferReason   `json:"reason"`
	Notes           string           `json:"notes,omitempty"`
	ScheduledDate   *time.Time       `json:"scheduled_date,omitempty"`
	Status          TransferStatus   `json:"status"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	RequestedBy     string           `json:"requested_by,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
}

// TransferFilter narrows ListTransfers. Zero values match everything.
type TransferFilter struct {
	Status      TransferStatus
	ProductID   string
	WarehouseID string // matches either side of the transfer
	Limit       int
}

// AllocationFilter narrows ListAllocations. Zero values match everything.
type AllocationFilter struct {
	ProductID   string
	WarehouseID string
}

package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// WarehouseOverview is a warehouse with its current total allocation.
type WarehouseOverview struct {
	Warehouse
	CurrentStock int64 `json:"current_stock"`
}

// WarehouseProduct is one product line of a warehouse's stock list.
type WarehouseProduct struct {
	ProductID         string      `json:"product_id"`
	Name              string      `json:"name"`
	SKU               string      `json:"sku"`
	AllocatedQuantity int64       `json:"allocated_quantity"`
	SafetyStock       int64       `json:"safety_stock"`
	ReorderPoint      int64       `json:"reorder_point"`
	MaxStock          int64       `json:"max_stock"`
	Available         int64       `json:"available"`
	Status            StockStatus `json:"status"`
}

// InventorySummary aggregates a set of allocation records for dashboards.
type InventorySummary struct {
	TotalItems      int             `json:"total_items"`
	LowStockItems   int             `json:"low_stock_items"`
	OutOfStockItems int             `json:"out_of_stock_items"`
	TotalQuantity   int64           `json:"total_quantity"`
	TotalReserved   int64           `json:"total_reserved"`
	TotalValue      decimal.Decimal `json:"total_value"`
}

// Summarize aggregates records. totalValue is allocated quantity times the
// product's unit price; products missing from prices contribute no value.
func Summarize(records []AllocationRecord, prices map[string]decimal.Decimal) InventorySummary {
	s := InventorySummary{TotalValue: decimal.Zero}
	for _, r := range records {
		s.TotalItems++
		switch Classify(r).Status {
		case LowStock:
			s.LowStockItems++
		case OutOfStock:
			s.OutOfStockItems++
		}
		s.TotalQuantity += r.AllocatedQuantity
		s.TotalReserved += r.SafetyStock
		if price, ok := prices[r.ProductID]; ok {
			s.TotalValue = s.TotalValue.Add(price.Mul(decimal.NewFromInt(r.AllocatedQuantity)))
		}
	}
	return s
}

// QueryService is the read side used by dashboards. Every call reads the
// current ledger state; nothing is cached.
type QueryService interface {
	ListWarehouses(ctx context.Context) ([]WarehouseOverview, error)
	ListWarehouseProducts(ctx context.Context, warehouseID string) ([]WarehouseProduct, error)
	// Summary aggregates all allocations, or one warehouse's when warehouseID is set.
	Summary(ctx context.Context, warehouseID string) (*InventorySummary, error)
}

type queryService struct {
	ledger Ledger
}

func NewQueryService(ledger Ledger) QueryService {
	return &queryService{ledger: ledger}
}

func (s *queryService) ListWarehouses(ctx context.Context) ([]WarehouseOverview, error) {
	warehouses, err := s.ledger.ListWarehouses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	records, err := s.ledger.ListAllocations(ctx, AllocationFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}

	stock := make(map[string]int64, len(warehouses))
	for _, r := range records {
		stock[r.WarehouseID] += r.AllocatedQuantity
	}

	out := make([]WarehouseOverview, 0, len(warehouses))
	for _, w := range warehouses {
		out = append(out, WarehouseOverview{Warehouse: w, CurrentStock: stock[w.ID]})
	}
	return out, nil
}

func (s *queryService) ListWarehouseProducts(ctx context.Context, warehouseID string) ([]WarehouseProduct, error) {
	if _, err := s.ledger.GetWarehouse(ctx, warehouseID); err != nil {
		return nil, err
	}
	records, err := s.ledger.ListAllocations(ctx, AllocationFilter{WarehouseID: warehouseID})
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations for warehouse %s: %w", warehouseID, err)
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]WarehouseProduct, 0, len(records))
	for _, r := range records {
		c := Classify(r)
		p := products[r.ProductID]
		out = append(out, WarehouseProduct{
			ProductID:         r.ProductID,
			Name:              p.Name,
			SKU:               p.SKU,
			AllocatedQuantity: r.AllocatedQuantity,
			SafetyStock:       r.SafetyStock,
			ReorderPoint:      r.ReorderPoint,
			MaxStock:          r.MaxStock,
			Available:         c.Available,
			Status:            c.Status,
		})
	}
	return out, nil
}

func (s *queryService) Summary(ctx context.Context, warehouseID string) (*InventorySummary, error) {
	if warehouseID != "" {
		if _, err := s.ledger.GetWarehouse(ctx, warehouseID); err != nil {
			return nil, err
		}
	}
	records, err := s.ledger.ListAllocations(ctx, AllocationFilter{WarehouseID: warehouseID})
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	products, err := s.productIndex(ctx)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]decimal.Decimal, len(products))
	for id, p := range products {
		prices[id] = p.UnitPrice
	}
	summary := Summarize(records, prices)
	return &summary, nil
}

func (s *queryService) productIndex(ctx context.Context) (map[string]Product, error) {
	products, err := s.ledger.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	idx := make(map[string]Product, len(products))
	for _, p := range products {
		idx[p.ID] = p
	}
	return idx, nil
}

package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AdjustmentRequest changes a row's quantities outside of a transfer, e.g. a
// goods receipt or a cycle-count correction. Results are clamped at zero.
type AdjustmentRequest struct {
	ProductID        string
	WarehouseID      string
	QuantityDelta    int64
	SafetyStockDelta int64
	Reason           string
}

// AllocationService maintains allocation rows directly.
type AllocationService interface {
	Adjust(ctx context.Context, req AdjustmentRequest) (*AllocationSnapshot, error)
	SetThresholds(ctx context.Context, key AllocationKey, t Thresholds) (*AllocationSnapshot, error)
}

type allocationService struct {
	ledger Ledger
	cfg    serviceConfig
}

func NewAllocationService(ledger Ledger, opts ...Option) AllocationService {
	return &allocationService{ledger: ledger, cfg: newServiceConfig(opts)}
}

func (s *allocationService) Adjust(ctx context.Context, req AdjustmentRequest) (*AllocationSnapshot, error) {
	key := AllocationKey{ProductID: req.ProductID, WarehouseID: req.WarehouseID}
	problems := requireKey(key)
	if req.QuantityDelta == 0 && req.SafetyStockDelta == 0 {
		problems.add("quantity_delta", CodeInvalidQuantity, "adjustment must change quantity or safety stock")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, key); err != nil {
		return nil, err
	}

	rec, err := s.ledger.UpsertDelta(ctx, key, AllocationDelta{
		Quantity:    req.QuantityDelta,
		SafetyStock: req.SafetyStockDelta,
		Policy:      ClampAtZero,
	})
	if errors.Is(err, ErrQuantityOverflow) {
		var problems ValidationErrors
		problems.add("quantity_delta", CodeInvalidQuantity, "adjustment would overflow the quantity of %s", key)
		return nil, problems
	}
	if err != nil {
		return nil, fmt.Errorf("failed to adjust allocation %s: %w", key, err)
	}

	snap := Snapshot(*rec)
	s.cfg.logger.Info("allocation adjusted",
		zap.String("product_id", key.ProductID),
		zap.String("warehouse_id", key.WarehouseID),
		zap.Int64("quantity_delta", req.QuantityDelta),
		zap.Int64("safety_stock_delta", req.SafetyStockDelta),
		zap.String("reason", req.Reason),
	)
	s.publish(ctx, snap)
	return &snap, nil
}

func (s *allocationService) SetThresholds(ctx context.Context, key AllocationKey, t Thresholds) (*AllocationSnapshot, error) {
	problems := requireKey(key)
	if t.SafetyStock < 0 {
		problems.add("safety_stock", CodeInvalidValue, "safety stock cannot be negative")
	}
	if t.ReorderPoint < 0 {
		problems.add("reorder_point", CodeInvalidValue, "reorder point cannot be negative")
	}
	if t.MaxStock < 0 {
		problems.add("max_stock", CodeInvalidValue, "max stock cannot be negative")
	}
	if t.MaxStock > 0 && t.MaxStock <= t.ReorderPoint {
		problems.add("max_stock", CodeInvalidValue, "max stock must exceed the reorder point")
	}
	if err := problems.Err(); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, key); err != nil {
		return nil, err
	}

	var rec *AllocationRecord
	err := s.ledger.WithTx(ctx, func(tx LedgerTx) error {
		var err error
		rec, err = tx.SetThresholds(ctx, key, t)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set thresholds for %s: %w", key, err)
	}

	snap := Snapshot(*rec)
	s.publish(ctx, snap)
	return &snap, nil
}

func (s *allocationService) checkRefs(ctx context.Context, key AllocationKey) error {
	if _, err := s.ledger.GetWarehouse(ctx, key.WarehouseID); err != nil {
		return err
	}
	if _, err := s.ledger.GetProduct(ctx, key.ProductID); err != nil {
		return err
	}
	return nil
}

func (s *allocationService) publish(ctx context.Context, snap AllocationSnapshot) {
	ev := AllocationEvent{
		Type:        EventAllocationAdjust,
		Allocations: []AllocationSnapshot{snap},
		OccurredAt:  s.cfg.now(),
	}
	if err := s.cfg.publisher.Publish(ctx, ev); err != nil {
		s.cfg.logger.Warn("failed to publish allocation event", zap.Error(err))
	}
}

func requireKey(key AllocationKey) ValidationErrors {
	var problems ValidationErrors
	if key.ProductID == "" {
		problems.add("product_id", CodeRequired, "product is required")
	}
	if key.WarehouseID == "" {
		problems.add("warehouse_id", CodeRequired, "warehouse is required")
	}
	return problems
}

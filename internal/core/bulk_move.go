package core

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BulkMoveItem is one product to move into the target warehouse. An empty
// SourceWarehouseID lets the coordinator pick the source.
type BulkMoveItem struct {
	ProductID         string          `json:"product_id"`
	SourceWarehouseID string          `json:"source_warehouse_id,omitempty"`
	Quantity          decimal.Decimal `json:"quantity"`
}

// BulkMoveRequest moves several products into one target warehouse.
type BulkMoveRequest struct {
	TargetWarehouseID string
	Items             []BulkMoveItem
	Priority          TransferPriority
	Reason            TransferReason
	Notes             string
	RequestedBy       string
}

// BulkItemError is a per-product failure of a bulk move stage.
type BulkItemError struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// ResolvedMove is a bulk item with its source settled and availability checked.
type ResolvedMove struct {
	ProductID         string `json:"product_id"`
	SourceWarehouseID string `json:"source_warehouse_id"`
	Quantity          int64  `json:"quantity"`
	Available         int64  `json:"available"`
}

// BulkMoveProposal is the outcome of the review stage. When Valid is false,
// Errors lists every failing product and Moves is empty.
type BulkMoveProposal struct {
	TargetWarehouseID string          `json:"target_warehouse_id"`
	Valid             bool            `json:"valid"`
	Moves             []ResolvedMove  `json:"moves,omitempty"`
	Errors            []BulkItemError `json:"errors,omitempty"`
}

// BulkMoveResult is the outcome of the confirm stage. Items succeed or fail on
// their own; a failure never reverts an earlier success.
type BulkMoveResult struct {
	TargetWarehouseID string           `json:"target_warehouse_id"`
	Succeeded         int              `json:"succeeded"`
	Failed            []BulkItemError  `json:"failed"`
	Transfers         []TransferResult `json:"transfers"`
}

// Partial reports whether some, but not all, items were moved.
func (r *BulkMoveResult) Partial() bool {
	return r.Succeeded > 0 && len(r.Failed) > 0
}

// BulkMoveCoordinator runs the propose → confirm workflow for moving many
// products into one warehouse.
type BulkMoveCoordinator interface {
	// Propose validates every item and rejects the whole request if any fails.
	Propose(ctx context.Context, req BulkMoveRequest) (*BulkMoveProposal, error)
	// Confirm issues one transfer per item, re-resolving implicit sources, and
	// keeps going past failed items.
	Confirm(ctx context.Context, req BulkMoveRequest) (*BulkMoveResult, error)
}

type bulkMoveCoordinator struct {
	ledger    Ledger
	transfers TransferService
	cfg       serviceConfig
}

func NewBulkMoveCoordinator(ledger Ledger, transfers TransferService, opts ...Option) BulkMoveCoordinator {
	return &bulkMoveCoordinator{ledger: ledger, transfers: transfers, cfg: newServiceConfig(opts)}
}

func (c *bulkMoveCoordinator) Propose(ctx context.Context, req BulkMoveRequest) (*BulkMoveProposal, error) {
	if err := c.checkTarget(ctx, req); err != nil {
		return nil, err
	}

	proposal := &BulkMoveProposal{TargetWarehouseID: req.TargetWarehouseID}
	seen := make(map[AllocationKey]bool, len(req.Items))
	var moves []ResolvedMove

	for _, item := range req.Items {
		move, reason, err := c.resolve(ctx, req.TargetWarehouseID, item)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			key := AllocationKey{ProductID: move.ProductID, WarehouseID: move.SourceWarehouseID}
			if seen[key] {
				reason = fmt.Sprintf("product %s appears more than once for source %s", move.ProductID, move.SourceWarehouseID)
			}
			seen[key] = true
		}
		if reason == "" && move.Quantity > move.Available {
			reason = fmt.Sprintf("requested %d exceeds available %d at warehouse %s",
				move.Quantity, move.Available, move.SourceWarehouseID)
		}
		if reason != "" {
			proposal.Errors = append(proposal.Errors, BulkItemError{ProductID: item.ProductID, Reason: reason})
			continue
		}
		moves = append(moves, move)
	}

	if len(proposal.Errors) == 0 {
		proposal.Valid = true
		proposal.Moves = moves
	}
	c.cfg.logger.Debug("bulk move proposed",
		zap.String("target", req.TargetWarehouseID),
		zap.Int("items", len(req.Items)),
		zap.Bool("valid", proposal.Valid),
	)
	return proposal, nil
}

func (c *bulkMoveCoordinator) Confirm(ctx context.Context, req BulkMoveRequest) (*BulkMoveResult, error) {
	if err := c.checkTarget(ctx, req); err != nil {
		return nil, err
	}

	result := &BulkMoveResult{
		TargetWarehouseID: req.TargetWarehouseID,
		Failed:            []BulkItemError{},
		Transfers:         []TransferResult{},
	}
	for _, item := range req.Items {
		move, reason, err := c.resolve(ctx, req.TargetWarehouseID, item)
		if err != nil {
			reason = err.Error()
		}
		if reason != "" {
			result.Failed = append(result.Failed, BulkItemError{ProductID: item.ProductID, Reason: reason})
			continue
		}

		tr, err := c.transfers.CreateTransfer(ctx, TransferRequest{
			FromWarehouseID: move.SourceWarehouseID,
			ToWarehouseID:   req.TargetWarehouseID,
			ProductID:       move.ProductID,
			Quantity:        decimal.NewFromInt(move.Quantity),
			Priority:        req.Priority,
			Reason:          req.Reason,
			Notes:           req.Notes,
			RequestedBy:     req.RequestedBy,
		})
		if err != nil {
			result.Failed = append(result.Failed, BulkItemError{ProductID: item.ProductID, Reason: failureReason(err)})
			continue
		}
		result.Succeeded++
		result.Transfers = append(result.Transfers, *tr)
	}

	c.cfg.logger.Info("bulk move confirmed",
		zap.String("target", req.TargetWarehouseID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// checkTarget rejects requests that cannot be fixed item by item.
func (c *bulkMoveCoordinator) checkTarget(ctx context.Context, req BulkMoveRequest) error {
	var problems ValidationErrors
	if req.TargetWarehouseID == "" {
		problems.add("target_warehouse_id", CodeRequired, "target warehouse is required")
	}
	if len(req.Items) == 0 {
		problems.add("items", CodeRequired, "at least one product is required")
	}
	if req.Priority != "" && !req.Priority.Valid() {
		problems.add("priority", CodeInvalidValue, "unknown priority %q", req.Priority)
	}
	if req.Reason != "" && !req.Reason.Valid() {
		problems.add("reason", CodeInvalidValue, "unknown reason %q", req.Reason)
	}
	if req.TargetWarehouseID != "" {
		w, err := c.ledger.GetWarehouse(ctx, req.TargetWarehouseID)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			problems.add("target_warehouse_id", CodeInactive, "target warehouse %s is inactive", w.ID)
		}
	}
	return problems.Err()
}

// resolve settles the item's source and reads its availability. A non-empty
// reason is an item-level failure; err is reserved for storage failures.
func (c *bulkMoveCoordinator) resolve(ctx context.Context, target string, item BulkMoveItem) (ResolvedMove, string, error) {
	move := ResolvedMove{ProductID: item.ProductID, SourceWarehouseID: item.SourceWarehouseID}
	if item.ProductID == "" {
		return move, "product is required", nil
	}
	qty, ok := wholeQuantity(item.Quantity)
	if !ok {
		return move, fmt.Sprintf("quantity must be a positive integer, got %s", item.Quantity.String()), nil
	}
	move.Quantity = qty

	if _, err := c.ledger.GetProduct(ctx, item.ProductID); err != nil {
		if IsNotFound(err) {
			return move, err.Error(), nil
		}
		return move, "", err
	}

	if move.SourceWarehouseID == "" {
		stocked, err := c.ledger.StockedWarehouses(ctx, item.ProductID)
		if err != nil {
			return move, "", fmt.Errorf("failed to resolve source for product %s: %w", item.ProductID, err)
		}
		for _, wh := range stocked {
			if wh != target {
				move.SourceWarehouseID = wh
				break
			}
		}
		if move.SourceWarehouseID == "" {
			return move, "no other warehouse holds stock of this product", nil
		}
	} else {
		if move.SourceWarehouseID == target {
			return move, "source and destination warehouse must differ", nil
		}
		w, err := c.ledger.GetWarehouse(ctx, move.SourceWarehouseID)
		if err != nil {
			if IsNotFound(err) {
				return move, err.Error(), nil
			}
			return move, "", err
		}
		if !w.IsActive() {
			return move, fmt.Sprintf("source warehouse %s is inactive", w.ID), nil
		}
	}

	rec, err := c.ledger.GetAllocation(ctx, AllocationKey{ProductID: item.ProductID, WarehouseID: move.SourceWarehouseID})
	if err != nil {
		return move, "", fmt.Errorf("failed to read allocation for product %s: %w", item.ProductID, err)
	}
	if rec != nil {
		move.Available = rec.Available()
	}
	return move, "", nil
}

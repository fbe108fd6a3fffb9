package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferRequest is a single source→destination stock move as submitted by a caller.
type TransferRequest struct {
	FromWarehouseID string
	ToWarehouseID   string
	ProductID       string
	Quantity        decimal.Decimal // must be a positive whole number
	Priority        TransferPriority
	Reason          TransferReason
	Notes           string
	ScheduledDate   *time.Time // nil or not in the future means apply now
	RequestedBy     string
}

// TransferResult carries the transfer and the allocation state of both sides
// after the call, so a caller can patch its view in place.
type TransferResult struct {
	Transfer    TransferRecord     `json:"transfer"`
	Source      AllocationSnapshot `json:"source"`
	Destination AllocationSnapshot `json:"destination"`
}

// TransferService validates and applies stock moves between warehouses.
type TransferService interface {
	// CreateTransfer validates req and either applies it immediately or queues it
	// as pending when ScheduledDate lies in the future.
	// Errors: ValidationErrors, *NotFoundError, *ConflictError, or a storage error.
	CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	// ExecutePending applies a previously scheduled transfer. Insufficient stock
	// marks it failed and returns *ConflictError; a source or destination
	// deactivated since scheduling marks it failed and returns ValidationErrors.
	ExecutePending(ctx context.Context, id string) (*TransferResult, error)
	GetTransfer(ctx context.Context, id string) (*TransferRecord, error)
	ListTransfers(ctx context.Context, filter TransferFilter) ([]TransferRecord, error)
}

type transferService struct {
	ledger Ledger
	cfg    serviceConfig
}

func NewTransferService(ledger Ledger, opts ...Option) TransferService {
	return &transferService{ledger: ledger, cfg: newServiceConfig(opts)}
}

func (s *transferService) GetTransfer(ctx context.Context, id string) (*TransferRecord, error) {
	return s.ledger.GetTransfer(ctx, id)
}

func (s *transferService) ListTransfers(ctx context.Context, filter TransferFilter) ([]TransferRecord, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		var problems ValidationErrors
		problems.add("status", CodeInvalidValue, "unknown transfer status %q", filter.Status)
		return nil, problems
	}
	return s.ledger.ListTransfers(ctx, filter)
}

func (s *transferService) CreateTransfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	qty, err := s.validate(ctx, req)
	if err != nil {
		return nil, err
	}

	now := s.cfg.now()
	t := TransferRecord{
		ID:              uuid.NewString(),
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ProductID:       req.ProductID,
		Quantity:        qty,
		Priority:        req.Priority,
		Reason:          req.Reason,
		Notes:           req.Notes,
		ScheduledDate:   req.ScheduledDate,
		Status:          TransferPending,
		RequestedBy:     req.RequestedBy,
		CreatedAt:       now,
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if t.Reason == "" {
		t.Reason = ReasonRebalance
	}

	if req.ScheduledDate != nil && req.ScheduledDate.After(now) {
		return s.schedule(ctx, t)
	}
	return s.apply(ctx, t, true)
}

func (s *transferService) ExecutePending(ctx context.Context, id string) (*TransferResult, error) {
	t, err := s.ledger.GetTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status != TransferPending {
		return nil, fmt.Errorf("transfer %s is %s: %w", id, t.Status, ErrTransferNotPending)
	}
	if err := s.checkEndpoints(ctx, *t); err != nil {
		if _, ok := AsValidation(err); ok || IsNotFound(err) {
			s.recordFailure(ctx, *t, false, failureReason(err))
		}
		return nil, err
	}
	return s.apply(ctx, *t, false)
}

// checkEndpoints re-checks the warehouses of a queued transfer, which may have
// been deactivated since it was scheduled.
func (s *transferService) checkEndpoints(ctx context.Context, t TransferRecord) error {
	var problems ValidationErrors
	sides := []struct{ field, label, id string }{
		{"from_warehouse_id", "source", t.FromWarehouseID},
		{"to_warehouse_id", "destination", t.ToWarehouseID},
	}
	for _, side := range sides {
		w, err := s.ledger.GetWarehouse(ctx, side.id)
		if err != nil {
			return err
		}
		if !w.IsActive() {
			problems.add(side.field, CodeInactive, "%s warehouse %s is inactive", side.label, w.ID)
		}
	}
	return problems.Err()
}

// validate collects every violated rule. Missing entities short-circuit with
// *NotFoundError because no edit of the other fields can fix them. A
// self-transfer returns its structural problems before any lookup.
func (s *transferService) validate(ctx context.Context, req TransferRequest) (int64, error) {
	var problems ValidationErrors

	if req.FromWarehouseID == "" {
		problems.add("from_warehouse_id", CodeRequired, "source warehouse is required")
	}
	if req.ToWarehouseID == "" {
		problems.add("to_warehouse_id", CodeRequired, "destination warehouse is required")
	}
	if req.ProductID == "" {
		problems.add("product_id", CodeRequired, "product is required")
	}
	qty, qtyOK := wholeQuantity(req.Quantity)
	if !qtyOK {
		problems.add("quantity", CodeInvalidQuantity, "quantity must be a positive integer, got %s", req.Quantity.String())
	}
	selfTransfer := req.FromWarehouseID != "" && req.FromWarehouseID == req.ToWarehouseID
	if selfTransfer {
		problems.add("to_warehouse_id", CodeSameWarehouse, "source and destination warehouse must differ")
	}
	if req.Priority != "" && !req.Priority.Valid() {
		problems.add("priority", CodeInvalidValue, "unknown priority %q", req.Priority)
	}
	if req.Reason != "" && !req.Reason.Valid() {
		problems.add("reason", CodeInvalidValue, "unknown reason %q", req.Reason)
	}
	if selfTransfer {
		return qty, problems
	}

	var from *Warehouse
	if req.FromWarehouseID != "" {
		w, err := s.ledger.GetWarehouse(ctx, req.FromWarehouseID)
		if err != nil {
			return 0, err
		}
		if !w.IsActive() {
			problems.add("from_warehouse_id", CodeInactive, "source warehouse %s is inactive", w.ID)
		}
		from = w
	}
	if req.ToWarehouseID != "" && req.ToWarehouseID != req.FromWarehouseID {
		w, err := s.ledger.GetWarehouse(ctx, req.ToWarehouseID)
		if err != nil {
			return 0, err
		}
		if !w.IsActive() {
			problems.add("to_warehouse_id", CodeInactive, "destination warehouse %s is inactive", w.ID)
		}
	}
	if req.ProductID != "" {
		if _, err := s.ledger.GetProduct(ctx, req.ProductID); err != nil {
			return 0, err
		}
	}

	if qtyOK && from != nil && req.ProductID != "" {
		rec, err := s.ledger.GetAllocation(ctx, AllocationKey{ProductID: req.ProductID, WarehouseID: from.ID})
		if err != nil {
			return 0, fmt.Errorf("failed to read source allocation: %w", err)
		}
		var available int64
		if rec != nil {
			available = rec.Available()
		}
		if qty > available {
			problems.add("quantity", CodeInsufficientStock,
				"requested %d exceeds available %d at warehouse %s", qty, available, from.ID)
		}
	}

	return qty, problems.Err()
}

// schedule persists a future-dated transfer as pending without touching stock.
func (s *transferService) schedule(ctx context.Context, t TransferRecord) (*TransferResult, error) {
	if err := s.ledger.WithTx(ctx, func(tx LedgerTx) error {
		return tx.InsertTransfer(ctx, &t)
	}); err != nil {
		return nil, fmt.Errorf("failed to queue scheduled transfer: %w", err)
	}

	src, dst, err := s.currentPair(ctx, t)
	if err != nil {
		return nil, err
	}

	s.cfg.logger.Info("transfer scheduled",
		zap.String("transfer_id", t.ID),
		zap.String("product_id", t.ProductID),
		zap.Int64("quantity", t.Quantity),
		zap.Timep("scheduled_date", t.ScheduledDate),
	)
	result := &TransferResult{Transfer: t, Source: src, Destination: dst}
	s.publish(ctx, AllocationEvent{Type: EventTransferScheduled, Transfer: &result.Transfer})
	return result, nil
}

// apply moves stock in one unit of work. Both rows are locked, the source is
// re-checked under the lock, and the debit, credit and transfer record commit
// together or not at all.
func (s *transferService) apply(ctx context.Context, t TransferRecord, isNew bool) (*TransferResult, error) {
	srcKey := AllocationKey{ProductID: t.ProductID, WarehouseID: t.FromWarehouseID}
	dstKey := AllocationKey{ProductID: t.ProductID, WarehouseID: t.ToWarehouseID}

	var result TransferResult
	err := s.ledger.WithTx(ctx, func(tx LedgerTx) error {
		if !isNew {
			current, err := tx.LockTransfer(ctx, t.ID)
			if err != nil {
				return err
			}
			if current.Status != TransferPending {
				return fmt.Errorf("transfer %s is %s: %w", t.ID, current.Status, ErrTransferNotPending)
			}
		}

		src, err := lockPair(ctx, tx, srcKey, dstKey)
		if err != nil {
			return err
		}
		var available int64
		if src != nil {
			available = src.Available()
		}
		if t.Quantity > available {
			return &ConflictError{
				ProductID:   t.ProductID,
				WarehouseID: t.FromWarehouseID,
				Requested:   t.Quantity,
				Available:   available,
			}
		}

		srcRec, err := tx.ApplyDelta(ctx, srcKey, AllocationDelta{Quantity: -t.Quantity, Policy: RejectNegative})
		if err != nil {
			return fmt.Errorf("failed to debit source allocation %s: %w", srcKey, err)
		}
		dstRec, err := tx.ApplyDelta(ctx, dstKey, AllocationDelta{Quantity: t.Quantity, Policy: RejectNegative})
		if err != nil {
			return fmt.Errorf("failed to credit destination allocation %s: %w", dstKey, err)
		}

		completedAt := s.cfg.now()
		t.Status = TransferCompleted
		t.CompletedAt = &completedAt
		if isNew {
			err = tx.InsertTransfer(ctx, &t)
		} else {
			err = tx.FinishTransfer(ctx, t.ID, TransferCompleted, "", completedAt)
		}
		if err != nil {
			return fmt.Errorf("failed to record transfer: %w", err)
		}

		result = TransferResult{Transfer: t, Source: Snapshot(*srcRec), Destination: Snapshot(*dstRec)}
		return nil
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) && s.recordFailure(ctx, t, isNew, conflict.Error()) {
			conflict.TransferID = t.ID
		}
		return nil, err
	}

	s.cfg.logger.Info("transfer completed",
		zap.String("transfer_id", t.ID),
		zap.String("product_id", t.ProductID),
		zap.String("from", t.FromWarehouseID),
		zap.String("to", t.ToWarehouseID),
		zap.Int64("quantity", t.Quantity),
	)
	s.publish(ctx, AllocationEvent{
		Type:        EventTransferCompleted,
		Transfer:    &result.Transfer,
		Allocations: []AllocationSnapshot{result.Source, result.Destination},
	})
	return &result, nil
}

// recordFailure persists the failed attempt in its own unit of work so the
// audit trail survives the rolled-back transfer. It reports whether the failed
// record was written.
func (s *transferService) recordFailure(ctx context.Context, t TransferRecord, isNew bool, reason string) bool {
	at := s.cfg.now()
	err := s.ledger.WithTx(ctx, func(tx LedgerTx) error {
		if isNew {
			t.Status = TransferFailed
			t.FailureReason = reason
			return tx.InsertTransfer(ctx, &t)
		}
		current, err := tx.LockTransfer(ctx, t.ID)
		if err != nil {
			return err
		}
		if current.Status != TransferPending {
			return nil
		}
		return tx.FinishTransfer(ctx, t.ID, TransferFailed, reason, at)
	})
	if err != nil {
		s.cfg.logger.Error("failed to record failed transfer", zap.String("transfer_id", t.ID), zap.Error(err))
		return false
	}
	t.Status = TransferFailed
	t.FailureReason = reason

	s.cfg.logger.Warn("transfer failed",
		zap.String("transfer_id", t.ID),
		zap.String("product_id", t.ProductID),
		zap.String("reason", reason),
	)
	s.publish(ctx, AllocationEvent{Type: EventTransferFailed, Transfer: &t})
	return true
}

func (s *transferService) currentPair(ctx context.Context, t TransferRecord) (AllocationSnapshot, AllocationSnapshot, error) {
	var out [2]AllocationSnapshot
	for i, wh := range []string{t.FromWarehouseID, t.ToWarehouseID} {
		key := AllocationKey{ProductID: t.ProductID, WarehouseID: wh}
		rec, err := s.ledger.GetAllocation(ctx, key)
		if err != nil {
			return AllocationSnapshot{}, AllocationSnapshot{}, fmt.Errorf("failed to read allocation %s: %w", key, err)
		}
		if rec == nil {
			rec = &AllocationRecord{ProductID: key.ProductID, WarehouseID: key.WarehouseID}
		}
		out[i] = Snapshot(*rec)
	}
	return out[0], out[1], nil
}

func (s *transferService) publish(ctx context.Context, ev AllocationEvent) {
	ev.OccurredAt = s.cfg.now()
	if err := s.cfg.publisher.Publish(ctx, ev); err != nil {
		s.cfg.logger.Warn("failed to publish allocation event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// lockPair locks both rows in warehouse ID order so two opposite transfers
// cannot deadlock, and returns the source row.
func lockPair(ctx context.Context, tx LedgerTx, src, dst AllocationKey) (*AllocationRecord, error) {
	first, second := src, dst
	if dst.WarehouseID < src.WarehouseID {
		first, second = dst, src
	}
	a, err := tx.LockAllocation(ctx, first)
	if err != nil {
		return nil, fmt.Errorf("failed to lock allocation %s: %w", first, err)
	}
	b, err := tx.LockAllocation(ctx, second)
	if err != nil {
		return nil, fmt.Errorf("failed to lock allocation %s: %w", second, err)
	}
	if first == src {
		return a, nil
	}
	return b, nil
}

// wholeQuantity converts a positive integral decimal into units.
func wholeQuantity(q decimal.Decimal) (int64, bool) {
	if !q.IsPositive() || !q.IsInteger() || !q.BigInt().IsInt64() {
		return 0, false
	}
	return q.IntPart(), true
}

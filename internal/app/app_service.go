package app

import (
	"context"
	"time"

	"inventory-ledger/internal/core"
)

type appService struct {
	queries     core.QueryService
	allocations core.AllocationService
	transfers   core.TransferService
	bulkMoves   core.BulkMoveCoordinator
	scheduler   *core.Scheduler
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	queries core.QueryService,
	allocations core.AllocationService,
	transfers core.TransferService,
	bulkMoves core.BulkMoveCoordinator,
	scheduler *core.Scheduler,
) ApplicationService {
	return &appService{
		queries:     queries,
		allocations: allocations,
		transfers:   transfers,
		bulkMoves:   bulkMoves,
		scheduler:   scheduler,
	}
}

// NewFromLedger wires every core service over one ledger with shared options.
// The returned scheduler sweeps every interval once Run is called.
func NewFromLedger(ledger core.Ledger, interval time.Duration, sweepBatch int, opts ...core.Option) (ApplicationService, *core.Scheduler) {
	transfers := core.NewTransferService(ledger, opts...)
	scheduler := core.NewScheduler(ledger, transfers, interval, sweepBatch, opts...)
	svc := NewAppService(
		core.NewQueryService(ledger),
		core.NewAllocationService(ledger, opts...),
		transfers,
		core.NewBulkMoveCoordinator(ledger, transfers, opts...),
		scheduler,
	)
	return svc, scheduler
}

func (s *appService) ListWarehouses(ctx context.Context) (*WarehouseListResult, error) {
	warehouses, err := s.queries.ListWarehouses(ctx)
	if err != nil {
		return nil, err
	}
	return &WarehouseListResult{Warehouses: warehouses}, nil
}

func (s *appService) ListWarehouseProducts(ctx context.Context, warehouseID string) (*WarehouseStockResult, error) {
	products, err := s.queries.ListWarehouseProducts(ctx, warehouseID)
	if err != nil {
		return nil, err
	}
	return &WarehouseStockResult{WarehouseID: warehouseID, Products: products}, nil
}

func (s *appService) GetSummary(ctx context.Context, warehouseID string) (*core.InventorySummary, error) {
	return s.queries.Summary(ctx, warehouseID)
}

func (s *appService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.AllocationSnapshot, error) {
	return s.allocations.Adjust(ctx, core.AdjustmentRequest{
		ProductID:        req.ProductID,
		WarehouseID:      req.WarehouseID,
		QuantityDelta:    req.QuantityDelta,
		SafetyStockDelta: req.SafetyStockDelta,
		Reason:           req.Reason,
	})
}

func (s *appService) SetThresholds(ctx context.Context, req SetThresholdsRequest) (*core.AllocationSnapshot, error) {
	return s.allocations.SetThresholds(ctx,
		core.AllocationKey{ProductID: req.ProductID, WarehouseID: req.WarehouseID},
		core.Thresholds{SafetyStock: req.SafetyStock, ReorderPoint: req.ReorderPoint, MaxStock: req.MaxStock},
	)
}

func (s *appService) CreateTransfer(ctx context.Context, req CreateTransferRequest) (*core.TransferResult, error) {
	return s.transfers.CreateTransfer(ctx, core.TransferRequest{
		FromWarehouseID: req.FromWarehouseID,
		ToWarehouseID:   req.ToWarehouseID,
		ProductID:       req.ProductID,
		Quantity:        req.Quantity,
		Priority:        core.TransferPriority(req.Priority),
		Reason:          core.TransferReason(req.Reason),
		Notes:           req.Notes,
		ScheduledDate:   req.ScheduledDate,
		RequestedBy:     req.RequestedBy,
	})
}

func (s *appService) GetTransfer(ctx context.Context, id string) (*core.TransferRecord, error) {
	return s.transfers.GetTransfer(ctx, id)
}

func (s *appService) ListTransfers(ctx context.Context, filter core.TransferFilter) (*TransferListResult, error) {
	transfers, err := s.transfers.ListTransfers(ctx, filter)
	if err != nil {
		return nil, err
	}
	if transfers == nil {
		transfers = []core.TransferRecord{}
	}
	return &TransferListResult{Transfers: transfers}, nil
}

func (s *appService) RunScheduledTransfers(ctx context.Context) (*core.SweepResult, error) {
	return s.scheduler.Sweep(ctx)
}

func (s *appService) ProposeBulkMove(ctx context.Context, req BulkMoveRequest) (*core.BulkMoveProposal, error) {
	return s.bulkMoves.Propose(ctx, toCoreBulk(req))
}

func (s *appService) ConfirmBulkMove(ctx context.Context, req BulkMoveRequest) (*core.BulkMoveResult, error) {
	return s.bulkMoves.Confirm(ctx, toCoreBulk(req))
}

func toCoreBulk(req BulkMoveRequest) core.BulkMoveRequest {
	items := make([]core.BulkMoveItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = core.BulkMoveItem{
			ProductID:         it.ProductID,
			SourceWarehouseID: it.SourceWarehouseID,
			Quantity:          it.Quantity,
		}
	}
	return core.BulkMoveRequest{
		TargetWarehouseID: req.TargetWarehouseID,
		Items:             items,
		Priority:          core.TransferPriority(req.Priority),
		Reason:            core.TransferReason(req.Reason),
		Notes:             req.Notes,
		RequestedBy:       req.RequestedBy,
	}
}

package core_test

import (
	"context"
	"testing"
	"time"

	"inventory-ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_ExecutesDueTransfersByPriority(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "P1", "W1", 100, 0)

	schedule := func(qty int64, priority core.TransferPriority, in time.Duration) string {
		when := f.clock.Now().Add(in)
		req := transferReq("W1", "W2", "P1", qty)
		req.Priority = priority
		req.ScheduledDate = &when
		res, err := f.transfers.CreateTransfer(f.ctx, req)
		require.NoError(t, err)
		require.Equal(t, core.TransferPending, res.Transfer.Status)
		return res.Transfer.ID
	}

	low := schedule(60, core.PriorityLow, time.Hour)
	urgent := schedule(60, core.PriorityUrgent, 2*time.Hour)
	later := schedule(1, core.PriorityHigh, 48*time.Hour)

	result, err := f.scheduler.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Executed, "nothing due yet")
	assert.Empty(t, result.Failed)

	f.clock.Advance(3 * time.Hour)
	result, err = f.scheduler.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Executed)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, low, result.Failed[0].TransferID, "urgent ran first and consumed the stock")

	got, err := f.transfers.GetTransfer(f.ctx, urgent)
	require.NoError(t, err)
	assert.Equal(t, core.TransferCompleted, got.Status)

	got, err = f.transfers.GetTransfer(f.ctx, low)
	require.NoError(t, err)
	assert.Equal(t, core.TransferFailed, got.Status)
	assert.NotEmpty(t, got.FailureReason)

	got, err = f.transfers.GetTransfer(f.ctx, later)
	require.NoError(t, err)
	assert.Equal(t, core.TransferPending, got.Status)

	assert.Equal(t, int64(40), f.allocation(t, "P1", "W1").AllocatedQuantity)
	assert.Equal(t, int64(60), f.allocation(t, "P1", "W2").AllocatedQuantity)

	result, err = f.scheduler.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Executed, "terminal transfers are not retried")
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	s := core.NewScheduler(f.mem, f.transfers, 10*time.Millisecond, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_RunRejectsZeroInterval(t *testing.T) {
	f := newFixture(t)
	s := core.NewScheduler(f.mem, f.transfers, 0, 10)
	assert.Error(t, s.Run(context.Background()))
}

func TestSweep_FailsTransferToDeactivatedWarehouse(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "P1", "W1", 50, 0)

	when := f.clock.Now().Add(time.Hour)
	req := transferReq("W1", "W2", "P1", 10)
	req.ScheduledDate = &when
	res, err := f.transfers.CreateTransfer(f.ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.mem.SaveWarehouse(f.ctx, core.Warehouse{ID: "W2", Name: "South", Status: core.WarehouseInactive}))
	f.clock.Advance(2 * time.Hour)

	result, err := f.scheduler.Sweep(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, result.Executed)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, res.Transfer.ID, result.Failed[0].TransferID)

	got, err := f.transfers.GetTransfer(f.ctx, res.Transfer.ID)
	require.NoError(t, err)
	assert.Equal(t, core.TransferFailed, got.Status)
	assert.Contains(t, got.FailureReason, "destination warehouse W2 is inactive")

	assert.Equal(t, int64(50), f.allocation(t, "P1", "W1").AllocatedQuantity)
	assert.Zero(t, f.allocation(t, "P1", "W2").AllocatedQuantity)
	assert.Contains(t, f.events.Types(), core.EventTransferFailed)
}

func TestExecutePending_InactiveSourceIsValidationError(t *testing.T) {
	f := newFixture(t)
	f.stock(t, "P1", "W1", 50, 0)

	when := f.clock.Now().Add(time.Hour)
	req := transferReq("W1", "W2", "P1", 10)
	req.ScheduledDate = &when
	res, err := f.transfers.CreateTransfer(f.ctx, req)
	require.NoError(t, err)

	require.NoError(t, f.mem.SaveWarehouse(f.ctx, core.Warehouse{ID: "W1", Name: "North", Status: core.WarehouseInactive}))

	_, err = f.transfers.ExecutePending(f.ctx, res.Transfer.ID)
	assert.Equal(t, []string{core.CodeInactive}, problemCodes(t, err))

	_, err = f.transfers.ExecutePending(f.ctx, res.Transfer.ID)
	assert.ErrorIs(t, err, core.ErrTransferNotPending, "failed transfers are terminal")
}

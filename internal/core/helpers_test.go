package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable time source shared by every service in a fixture.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []core.AllocationEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev core.AllocationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Types() []core.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]core.EventType, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	ctx         context.Context
	mem         *store.Memory
	clock       *fakeClock
	events      *recordingPublisher
	transfers   core.TransferService
	bulk        core.BulkMoveCoordinator
	queries     core.QueryService
	allocations core.AllocationService
	scheduler   *core.Scheduler
}

// newFixture returns services over an in-memory ledger holding warehouses W1,
// W2, W3 (active) and WX (inactive), and products P1, P2, P3.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	for _, w := range []core.Warehouse{
		{ID: "W1", Name: "North"},
		{ID: "W2", Name: "South"},
		{ID: "W3", Name: "East"},
		{ID: "WX", Name: "Closed", Status: core.WarehouseInactive},
	} {
		require.NoError(t, mem.SaveWarehouse(ctx, w))
	}
	for _, p := range []core.Product{
		{ID: "P1", Name: "Widget", SKU: "WID-1", UnitPrice: decimal.RequireFromString("2.50")},
		{ID: "P2", Name: "Gadget", SKU: "GAD-1", UnitPrice: decimal.RequireFromString("10")},
		{ID: "P3", Name: "Gizmo", SKU: "GIZ-1", UnitPrice: decimal.RequireFromString("1.25")},
	} {
		require.NoError(t, mem.SaveProduct(ctx, p))
	}

	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	events := &recordingPublisher{}
	opts := []core.Option{core.WithClock(clock.Now), core.WithPublisher(events)}

	transfers := core.NewTransferService(mem, opts...)
	return &fixture{
		ctx:         ctx,
		mem:         mem,
		clock:       clock,
		events:      events,
		transfers:   transfers,
		bulk:        core.NewBulkMoveCoordinator(mem, transfers, opts...),
		queries:     core.NewQueryService(mem),
		allocations: core.NewAllocationService(mem, opts...),
		scheduler:   core.NewScheduler(mem, transfers, time.Minute, 0, opts...),
	}
}

// stock sets allocated and safety stock for one row.
func (f *fixture) stock(t *testing.T, product, warehouse string, allocated, safety int64) {
	t.Helper()
	_, err := f.mem.UpsertDelta(f.ctx, core.AllocationKey{ProductID: product, WarehouseID: warehouse},
		core.AllocationDelta{Quantity: allocated, SafetyStock: safety})
	require.NoError(t, err)
}

// allocation returns the row, or a zero row when it was never created.
func (f *fixture) allocation(t *testing.T, product, warehouse string) core.AllocationRecord {
	t.Helper()
	rec, err := f.mem.GetAllocation(f.ctx, core.AllocationKey{ProductID: product, WarehouseID: warehouse})
	require.NoError(t, err)
	if rec == nil {
		return core.AllocationRecord{ProductID: product, WarehouseID: warehouse}
	}
	return *rec
}

func (f *fixture) totalAllocated(t *testing.T, product string) int64 {
	t.Helper()
	recs, err := f.mem.ListAllocations(f.ctx, core.AllocationFilter{ProductID: product})
	require.NoError(t, err)
	var total int64
	for _, r := range recs {
		total += r.AllocatedQuantity
	}
	return total
}

func transferReq(from, to, product string, qty int64) core.TransferRequest {
	return core.TransferRequest{
		FromWarehouseID: from,
		ToWarehouseID:   to,
		ProductID:       product,
		Quantity:        decimal.NewFromInt(qty),
	}
}

func problemCodes(t *testing.T, err error) []string {
	t.Helper()
	problems, ok := core.AsValidation(err)
	require.True(t, ok, "expected ValidationErrors, got %v", err)
	codes := make([]string, len(problems))
	for i, p := range problems {
		codes[i] = p.Code
	}
	return codes
}

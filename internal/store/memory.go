// Package store holds the Ledger implementations: an in-memory store for tests
// and single-node demos, and the PostgreSQL store used in production.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"inventory-ledger/internal/core"
)

// Memory is an in-memory Ledger. Units of work are serialised behind one
// mutex; writes are staged and only folded into the committed maps when the
// callback returns nil, so readers never observe a half-applied transfer.
type Memory struct {
	mu          sync.RWMutex
	warehouses  map[string]core.Warehouse
	products    map[string]core.Product
	allocations map[core.AllocationKey]core.AllocationRecord
	transfers   map[string]core.TransferRecord
	now         func() time.Time
	writeHook   func(core.AllocationKey) error
}

func NewMemory() *Memory {
	return &Memory{
		warehouses:  make(map[string]core.Warehouse),
		products:    make(map[string]core.Product),
		allocations: make(map[core.AllocationKey]core.AllocationRecord),
		transfers:   make(map[string]core.TransferRecord),
		now:         time.Now,
	}
}

// SetWriteHook installs a function consulted before every allocation write
// inside a unit of work. A non-nil return fails that write. Used to exercise
// rollback paths.
func (m *Memory) SetWriteHook(hook func(core.AllocationKey) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeHook = hook
}

// ── Catalog ───────────────────────────────────────────────────────────────────

func (m *Memory) ListWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Warehouse, 0, len(m.warehouses))
	for _, w := range m.warehouses {
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b core.Warehouse) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) GetWarehouse(ctx context.Context, id string) (*core.Warehouse, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	w, ok := m.warehouses[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "warehouse", ID: id}
	}
	return &w, nil
}

func (m *Memory) SaveWarehouse(ctx context.Context, w core.Warehouse) error {
	if w.ID == "" {
		return fmt.Errorf("warehouse id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if w.Status == "" {
		w.Status = core.WarehouseActive
	}
	if w.CreatedAt.IsZero() {
		w.CreatedAt = m.now()
	}
	m.warehouses[w.ID] = w
	return nil
}

func (m *Memory) ListProducts(ctx context.Context) ([]core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b core.Product) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (m *Memory) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "product", ID: id}
	}
	return &p, nil
}

func (m *Memory) SaveProduct(ctx context.Context, p core.Product) error {
	if p.ID == "" {
		return fmt.Errorf("product id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, other := range m.products {
		if other.ID != p.ID && other.BusinessID == p.BusinessID && other.SKU == p.SKU {
			return fmt.Errorf("sku %s already used by product %s", p.SKU, other.ID)
		}
	}
	m.products[p.ID] = p
	return nil
}

// ── Allocations ───────────────────────────────────────────────────────────────

func (m *Memory) GetAllocation(ctx context.Context, key core.AllocationKey) (*core.AllocationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.allocations[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListAllocations(ctx context.Context, filter core.AllocationFilter) ([]core.AllocationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.AllocationRecord
	for key, rec := range m.allocations {
		if filter.ProductID != "" && key.ProductID != filter.ProductID {
			continue
		}
		if filter.WarehouseID != "" && key.WarehouseID != filter.WarehouseID {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b core.AllocationRecord) int {
		return cmp.Or(cmp.Compare(a.ProductID, b.ProductID), cmp.Compare(a.WarehouseID, b.WarehouseID))
	})
	return out, nil
}

func (m *Memory) StockedWarehouses(ctx context.Context, productID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []string
	for key, rec := range m.allocations {
		if key.ProductID != productID || rec.AllocatedQuantity <= 0 {
			continue
		}
		if w, ok := m.warehouses[key.WarehouseID]; ok && w.IsActive() {
			out = append(out, key.WarehouseID)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (m *Memory) UpsertDelta(ctx context.Context, key core.AllocationKey, d core.AllocationDelta) (*core.AllocationRecord, error) {
	var rec *core.AllocationRecord
	err := m.WithTx(ctx, func(tx core.LedgerTx) error {
		var err error
		rec, err = tx.ApplyDelta(ctx, key, d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ── Transfers ─────────────────────────────────────────────────────────────────

func (m *Memory) GetTransfer(ctx context.Context, id string) (*core.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.transfers[id]
	if !ok {
		return nil, &core.NotFoundError{Entity: "transfer", ID: id}
	}
	return &t, nil
}

func (m *Memory) ListTransfers(ctx context.Context, filter core.TransferFilter) ([]core.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.TransferRecord
	for _, t := range m.transfers {
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.ProductID != "" && t.ProductID != filter.ProductID {
			continue
		}
		if filter.WarehouseID != "" && t.FromWarehouseID != filter.WarehouseID && t.ToWarehouseID != filter.WarehouseID {
			continue
		}
		out = append(out, t)
	}
	// newest first
	slices.SortFunc(out, func(a, b core.TransferRecord) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) DueTransfers(ctx context.Context, asOf time.Time, limit int) ([]core.TransferRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.TransferRecord
	for _, t := range m.transfers {
		if t.Status != core.TransferPending || t.ScheduledDate == nil || t.ScheduledDate.After(asOf) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b core.TransferRecord) int {
		return cmp.Or(
			cmp.Compare(b.Priority.Rank(), a.Priority.Rank()),
			a.ScheduledDate.Compare(*b.ScheduledDate),
			a.CreatedAt.Compare(b.CreatedAt),
			cmp.Compare(a.ID, b.ID),
		)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ── Units of work ─────────────────────────────────────────────────────────────

func (m *Memory) WithTx(ctx context.Context, fn func(tx core.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:           m,
		allocations: make(map[core.AllocationKey]core.AllocationRecord),
		transfers:   make(map[string]core.TransferRecord),
	}
	if err := fn(tx); err != nil {
		return err
	}

	for key, rec := range tx.allocations {
		m.allocations[key] = rec
	}
	for id, t := range tx.transfers {
		m.transfers[id] = t
	}
	return nil
}

// memTx stages writes; the parent mutex is held for its whole lifetime.
type memTx struct {
	m           *Memory
	allocations map[core.AllocationKey]core.AllocationRecord
	transfers   map[string]core.TransferRecord
}

func (tx *memTx) allocation(key core.AllocationKey) (core.AllocationRecord, bool) {
	if rec, ok := tx.allocations[key]; ok {
		return rec, true
	}
	rec, ok := tx.m.allocations[key]
	return rec, ok
}

func (tx *memTx) transfer(id string) (core.TransferRecord, bool) {
	if t, ok := tx.transfers[id]; ok {
		return t, true
	}
	t, ok := tx.m.transfers[id]
	return t, ok
}

func (tx *memTx) LockAllocation(ctx context.Context, key core.AllocationKey) (*core.AllocationRecord, error) {
	rec, ok := tx.allocation(key)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (tx *memTx) ApplyDelta(ctx context.Context, key core.AllocationKey, d core.AllocationDelta) (*core.AllocationRecord, error) {
	var current *core.AllocationRecord
	if rec, ok := tx.allocation(key); ok {
		current = &rec
	}
	next, err := core.ApplyDelta(key, current, d, tx.m.now())
	if err != nil {
		return nil, err
	}
	if tx.m.writeHook != nil {
		if err := tx.m.writeHook(key); err != nil {
			return nil, err
		}
	}
	tx.allocations[key] = next
	return &next, nil
}

func (tx *memTx) SetThresholds(ctx context.Context, key core.AllocationKey, t core.Thresholds) (*core.AllocationRecord, error) {
	rec, ok := tx.allocation(key)
	if !ok {
		rec = core.AllocationRecord{ProductID: key.ProductID, WarehouseID: key.WarehouseID}
	}
	rec.SafetyStock = t.SafetyStock
	rec.ReorderPoint = t.ReorderPoint
	rec.MaxStock = t.MaxStock
	rec.LastUpdated = tx.m.now()
	if tx.m.writeHook != nil {
		if err := tx.m.writeHook(key); err != nil {
			return nil, err
		}
	}
	tx.allocations[key] = rec
	return &rec, nil
}

func (tx *memTx) InsertTransfer(ctx context.Context, t *core.TransferRecord) error {
	if _, exists := tx.transfer(t.ID); exists {
		return fmt.Errorf("transfer %s already exists", t.ID)
	}
	tx.transfers[t.ID] = *t
	return nil
}

func (tx *memTx) LockTransfer(ctx context.Context, id string) (*core.TransferRecord, error) {
	t, ok := tx.transfer(id)
	if !ok {
		return nil, &core.NotFoundError{Entity: "transfer", ID: id}
	}
	return &t, nil
}

func (tx *memTx) FinishTransfer(ctx context.Context, id string, status core.TransferStatus, failureReason string, at time.Time) error {
	t, ok := tx.transfer(id)
	if !ok {
		return &core.NotFoundError{Entity: "transfer", ID: id}
	}
	if t.Status != core.TransferPending {
		return fmt.Errorf("transfer %s is %s: %w", id, t.Status, core.ErrTransferNotPending)
	}
	t.Status = status
	t.FailureReason = failureReason
	if status == core.TransferCompleted {
		t.CompletedAt = &at
	}
	tx.transfers[id] = t
	return nil
}

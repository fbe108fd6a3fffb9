package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory-ledger/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the production Ledger. Units of work run in a database
// transaction and lock allocation rows with SELECT ... FOR UPDATE, so
// concurrent transfers from one source serialise on that row.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const allocationColumns = `product_id, warehouse_id, allocated_quantity, safety_stock, reorder_point, max_stock, last_updated`

const transferColumns = `id, from_warehouse_id, to_warehouse_id, product_id, quantity, priority, reason, notes,
	scheduled_date, status, failure_reason, requested_by, created_at, completed_at`

// ── Catalog ───────────────────────────────────────────────────────────────────

func (s *Postgres) ListWarehouses(ctx context.Context) ([]core.Warehouse, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, region, capacity, status, created_at
		FROM warehouses
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []core.Warehouse
	for rows.Next() {
		var w core.Warehouse
		var status string
		if err := rows.Scan(&w.ID, &w.Name, &w.Region, &w.Capacity, &status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		w.Status = core.WarehouseStatus(status)
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

func (s *Postgres) GetWarehouse(ctx context.Context, id string) (*core.Warehouse, error) {
	var w core.Warehouse
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, region, capacity, status, created_at
		FROM warehouses
		WHERE id = $1
	`, id).Scan(&w.ID, &w.Name, &w.Region, &w.Capacity, &status, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "warehouse", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch warehouse %s: %w", id, err)
	}
	w.Status = core.WarehouseStatus(status)
	return &w, nil
}

func (s *Postgres) SaveWarehouse(ctx context.Context, w core.Warehouse) error {
	if w.Status == "" {
		w.Status = core.WarehouseActive
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO warehouses (id, name, region, capacity, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, region = EXCLUDED.region,
		    capacity = EXCLUDED.capacity, status = EXCLUDED.status
	`, w.ID, w.Name, w.Region, w.Capacity, string(w.Status))
	if err != nil {
		return fmt.Errorf("failed to save warehouse %s: %w", w.ID, err)
	}
	return nil
}

func (s *Postgres) ListProducts(ctx context.Context) ([]core.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, business_id, name, sku, weight_kg, dimensions, unit_price
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		var p core.Product
		if err := rows.Scan(&p.ID, &p.BusinessID, &p.Name, &p.SKU, &p.WeightKg, &p.Dimensions, &p.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Postgres) GetProduct(ctx context.Context, id string) (*core.Product, error) {
	var p core.Product
	err := s.pool.QueryRow(ctx, `
		SELECT id, business_id, name, sku, weight_kg, dimensions, unit_price
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.BusinessID, &p.Name, &p.SKU, &p.WeightKg, &p.Dimensions, &p.UnitPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "product", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
	}
	return &p, nil
}

func (s *Postgres) SaveProduct(ctx context.Context, p core.Product) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO products (id, business_id, name, sku, weight_kg, dimensions, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET business_id = EXCLUDED.business_id, name = EXCLUDED.name, sku = EXCLUDED.sku,
		    weight_kg = EXCLUDED.weight_kg, dimensions = EXCLUDED.dimensions, unit_price = EXCLUDED.unit_price
	`, p.ID, p.BusinessID, p.Name, p.SKU, p.WeightKg, p.Dimensions, p.UnitPrice)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sku %s already used by another product: %w", p.SKU, err)
		}
		return fmt.Errorf("failed to save product %s: %w", p.ID, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ── Allocations ───────────────────────────────────────────────────────────────

func (s *Postgres) GetAllocation(ctx context.Context, key core.AllocationKey) (*core.AllocationRecord, error) {
	rec, err := scanAllocation(s.pool.QueryRow(ctx,
		`SELECT `+allocationColumns+` FROM allocation_records WHERE product_id = $1 AND warehouse_id = $2`,
		key.ProductID, key.WarehouseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation %s: %w", key, err)
	}
	return rec, nil
}

func (s *Postgres) ListAllocations(ctx context.Context, filter core.AllocationFilter) ([]core.AllocationRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+allocationColumns+`
		FROM allocation_records
		WHERE ($1 = '' OR product_id = $1)
		  AND ($2 = '' OR warehouse_id = $2)
		ORDER BY product_id, warehouse_id
	`, filter.ProductID, filter.WarehouseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	var records []core.AllocationRecord
	for rows.Next() {
		rec, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

func (s *Postgres) StockedWarehouses(ctx context.Context, productID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ar.warehouse_id
		FROM allocation_records ar
		JOIN warehouses w ON w.id = ar.warehouse_id
		WHERE ar.product_id = $1
		  AND ar.allocated_quantity > 0
		  AND w.status = 'active'
		ORDER BY ar.warehouse_id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocked warehouses for product %s: %w", productID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan warehouse id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Postgres) UpsertDelta(ctx context.Context, key core.AllocationKey, d core.AllocationDelta) (*core.AllocationRecord, error) {
	var rec *core.AllocationRecord
	err := s.WithTx(ctx, func(tx core.LedgerTx) error {
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

func (s *Postgres) GetTransfer(ctx context.Context, id string) (*core.TransferRecord, error) {
	t, err := scanTransfer(s.pool.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_records WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "transfer", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch transfer %s: %w", id, err)
	}
	return t, nil
}

func (s *Postgres) ListTransfers(ctx context.Context, filter core.TransferFilter) ([]core.TransferRecord, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 1000
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfer_records
		WHERE ($1 = '' OR status = $1)
		  AND ($2 = '' OR product_id = $2)
		  AND ($3 = '' OR from_warehouse_id = $3 OR to_warehouse_id = $3)
		ORDER BY created_at DESC, id
		LIMIT $4
	`, string(filter.Status), filter.ProductID, filter.WarehouseID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	return collectTransfers(rows)
}

func (s *Postgres) DueTransfers(ctx context.Context, asOf time.Time, limit int) ([]core.TransferRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+transferColumns+`
		FROM transfer_records
		WHERE status = 'pending'
		  AND scheduled_date IS NOT NULL
		  AND scheduled_date <= $1
		ORDER BY CASE priority
		             WHEN 'urgent' THEN 3
		             WHEN 'high'   THEN 2
		             WHEN 'normal' THEN 1
		             ELSE 0
		         END DESC,
		         scheduled_date, created_at, id
		LIMIT $2
	`, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due transfers: %w", err)
	}
	return collectTransfers(rows)
}

// ── Units of work ─────────────────────────────────────────────────────────────

func (s *Postgres) WithTx(ctx context.Context, fn func(tx core.LedgerTx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockAllocation(ctx context.Context, key core.AllocationKey) (*core.AllocationRecord, error) {
	rec, err := scanAllocation(t.tx.QueryRow(ctx,
		`SELECT `+allocationColumns+` FROM allocation_records WHERE product_id = $1 AND warehouse_id = $2 FOR UPDATE`,
		key.ProductID, key.WarehouseID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ensureLocked creates the row if it is missing and returns it locked.
// ON CONFLICT DO UPDATE takes the row lock on an existing row as well.
func (t *pgTx) ensureLocked(ctx context.Context, key core.AllocationKey) (*core.AllocationRecord, bool, error) {
	var inserted bool
	row := t.tx.QueryRow(ctx, `
		INSERT INTO allocation_records (product_id, warehouse_id)
		VALUES ($1, $2)
		ON CONFLICT (product_id, warehouse_id) DO UPDATE SET last_updated = allocation_records.last_updated
		RETURNING `+allocationColumns+`, (xmax = 0) AS inserted
	`, key.ProductID, key.WarehouseID)

	var rec core.AllocationRecord
	err := row.Scan(&rec.ProductID, &rec.WarehouseID, &rec.AllocatedQuantity, &rec.SafetyStock,
		&rec.ReorderPoint, &rec.MaxStock, &rec.LastUpdated, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert allocation %s: %w", key, err)
	}
	return &rec, inserted, nil
}

func (t *pgTx) ApplyDelta(ctx context.Context, key core.AllocationKey, d core.AllocationDelta) (*core.AllocationRecord, error) {
	current, inserted, err := t.ensureLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if inserted {
		current = nil
	}

	next, err := core.ApplyDelta(key, current, d, time.Now())
	if err != nil {
		return nil, err
	}

	rec, err := scanAllocation(t.tx.QueryRow(ctx, `
		UPDATE allocation_records
		SET allocated_quantity = $3, safety_stock = $4, last_updated = NOW()
		WHERE product_id = $1 AND warehouse_id = $2
		RETURNING `+allocationColumns,
		key.ProductID, key.WarehouseID, next.AllocatedQuantity, next.SafetyStock,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to update allocation %s: %w", key, err)
	}
	return rec, nil
}

func (t *pgTx) SetThresholds(ctx context.Context, key core.AllocationKey, th core.Thresholds) (*core.AllocationRecord, error) {
	rec, err := scanAllocation(t.tx.QueryRow(ctx, `
		INSERT INTO allocation_records (product_id, warehouse_id, safety_stock, reorder_point, max_stock)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, warehouse_id) DO UPDATE
		SET safety_stock = EXCLUDED.safety_stock,
		    reorder_point = EXCLUDED.reorder_point,
		    max_stock = EXCLUDED.max_stock,
		    last_updated = NOW()
		RETURNING `+allocationColumns,
		key.ProductID, key.WarehouseID, th.SafetyStock, th.ReorderPoint, th.MaxStock,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to set thresholds for %s: %w", key, err)
	}
	return rec, nil
}

func (t *pgTx) InsertTransfer(ctx context.Context, tr *core.TransferRecord) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO transfer_records (`+transferColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, tr.ID, tr.FromWarehouseID, tr.ToWarehouseID, tr.ProductID, tr.Quantity,
		string(tr.Priority), string(tr.Reason), tr.Notes, tr.ScheduledDate,
		string(tr.Status), tr.FailureReason, tr.RequestedBy, tr.CreatedAt, tr.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer %s: %w", tr.ID, err)
	}
	return nil
}

func (t *pgTx) LockTransfer(ctx context.Context, id string) (*core.TransferRecord, error) {
	tr, err := scanTransfer(t.tx.QueryRow(ctx, `SELECT `+transferColumns+` FROM transfer_records WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "transfer", ID: id}
		}
		return nil, fmt.Errorf("failed to lock transfer %s: %w", id, err)
	}
	return tr, nil
}

func (t *pgTx) FinishTransfer(ctx context.Context, id string, status core.TransferStatus, failureReason string, at time.Time) error {
	var completedAt *time.Time
	if status == core.TransferCompleted {
		completedAt = &at
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE transfer_records
		SET status = $2, failure_reason = $3, completed_at = $4
		WHERE id = $1 AND status = 'pending'
	`, id, string(status), failureReason, completedAt)
	if err != nil {
		return fmt.Errorf("failed to update transfer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer %s: %w", id, core.ErrTransferNotPending)
	}
	return nil
}

// ── Scanning ──────────────────────────────────────────────────────────────────

func scanAllocation(row pgx.Row) (*core.AllocationRecord, error) {
	var rec core.AllocationRecord
	err := row.Scan(&rec.ProductID, &rec.WarehouseID, &rec.AllocatedQuantity, &rec.SafetyStock,
		&rec.ReorderPoint, &rec.MaxStock, &rec.LastUpdated)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func scanTransfer(row pgx.Row) (*core.TransferRecord, error) {
	var t core.TransferRecord
	var priority, reason, status string
	err := row.Scan(&t.ID, &t.FromWarehouseID, &t.ToWarehouseID, &t.ProductID, &t.Quantity,
		&priority, &reason, &t.Notes, &t.ScheduledDate, &status, &t.FailureReason,
		&t.RequestedBy, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		return nil, err
	}
	t.Priority = core.TransferPriority(priority)
	t.Reason = core.TransferReason(reason)
	t.Status = core.TransferStatus(status)
	return &t, nil
}

func collectTransfers(rows pgx.Rows) ([]core.TransferRecord, error) {
	defer rows.Close()

	var out []core.TransferRecord
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

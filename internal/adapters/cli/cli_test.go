package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"
	"inventory-ledger/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) app.ApplicationService {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.SaveWarehouse(ctx, core.Warehouse{ID: "W1", Name: "North"}))
	require.NoError(t, mem.SaveWarehouse(ctx, core.Warehouse{ID: "W2", Name: "South"}))
	require.NoError(t, mem.SaveProduct(ctx, core.Product{ID: "P1", Name: "Widget", SKU: "WID-1"}))
	_, err := mem.UpsertDelta(ctx, core.AllocationKey{ProductID: "P1", WarehouseID: "W1"}, core.AllocationDelta{Quantity: 10})
	require.NoError(t, err)

	svc, _ := app.NewFromLedger(mem, time.Minute, 0)
	return svc
}

func TestRunTransferAndSummary(t *testing.T) {
	svc := newService(t)
	var out bytes.Buffer

	require.NoError(t, Run(context.Background(), svc, []string{"transfer", "W1", "W2", "P1", "4", "restock", "south"}, &out))
	assert.Contains(t, out.String(), "completed: 4 x P1 W1 -> W2")

	out.Reset()
	require.NoError(t, Run(context.Background(), svc, []string{"summary", "W2"}, &out))
	assert.Contains(t, out.String(), "WAREHOUSE W2")

	out.Reset()
	require.NoError(t, Run(context.Background(), svc, []string{"products", "W1"}, &out))
	assert.Contains(t, out.String(), "WID-1")
}

func TestRunTransferReportsEveryProblem(t *testing.T) {
	svc := newService(t)
	err := Run(context.Background(), svc, []string{"transfer", "W1", "W1", "P1", "0"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), core.CodeInvalidQuantity)
	assert.Contains(t, err.Error(), core.CodeSameWarehouse)
}

func TestRunUnknownCommand(t *testing.T) {
	err := Run(context.Background(), newService(t), []string{"bogus"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")
}

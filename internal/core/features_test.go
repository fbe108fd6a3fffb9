package core_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"inventory-ledger/internal/core"
	"inventory-ledger/internal/store"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"
)

type transferTestContext struct {
	ctx       context.Context
	mem       *store.Memory
	transfers core.TransferService
	bulk      core.BulkMoveCoordinator
	result    *core.TransferResult
	proposal  *core.BulkMoveProposal
	err       error
}

func (c *transferTestContext) reset() {
	c.ctx = context.Background()
	c.mem = store.NewMemory()
	c.transfers = core.NewTransferService(c.mem)
	c.bulk = core.NewBulkMoveCoordinator(c.mem, c.transfers)
	c.result = nil
	c.proposal = nil
	c.err = nil
}

func (c *transferTestContext) saveWarehouse(id string, status core.WarehouseStatus) error {
	return c.mem.SaveWarehouse(c.ctx, core.Warehouse{ID: id, Name: id, Status: status})
}

func (c *transferTestContext) activeWarehouses(a, b string) error {
	if err := c.saveWarehouse(a, core.WarehouseActive); err != nil {
		return err
	}
	return c.saveWarehouse(b, core.WarehouseActive)
}

func (c *transferTestContext) anActiveWarehouse(id string) error {
	return c.saveWarehouse(id, core.WarehouseActive)
}

func (c *transferTestContext) warehouseIsInactive(id string) error {
	return c.saveWarehouse(id, core.WarehouseInactive)
}

func (c *transferTestContext) productHasStock(product string, allocated, safety int, warehouse string) error {
	if err := c.mem.SaveProduct(c.ctx, core.Product{ID: product, Name: product, SKU: "SKU-" + product, UnitPrice: decimal.NewFromInt(1)}); err != nil {
		return err
	}
	_, err := c.mem.UpsertDelta(c.ctx, core.AllocationKey{ProductID: product, WarehouseID: warehouse},
		core.AllocationDelta{Quantity: int64(allocated), SafetyStock: int64(safety)})
	return err
}

func (c *transferTestContext) iTransfer(qty, product, from, to string) error {
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return err
	}
	c.result, c.err = c.transfers.CreateTransfer(c.ctx, core.TransferRequest{
		FromWarehouseID: from,
		ToWarehouseID:   to,
		ProductID:       product,
		Quantity:        q,
	})
	return nil
}

func (c *transferTestContext) iProposeMoving(qty int, product, target string) error {
	c.proposal, c.err = c.bulk.Propose(c.ctx, core.BulkMoveRequest{
		TargetWarehouseID: target,
		Items:             []core.BulkMoveItem{{ProductID: product, Quantity: decimal.NewFromInt(int64(qty))}},
	})
	return c.err
}

func (c *transferTestContext) theTransferIs(status string) error {
	if c.err != nil {
		return fmt.Errorf("expected transfer but got error: %v", c.err)
	}
	if string(c.result.Transfer.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, c.result.Transfer.Status)
	}
	return nil
}

func (c *transferTestContext) theRequestIsRejectedWith(code string) error {
	if c.err == nil {
		return errors.New("expected request to fail but it succeeded")
	}
	problems, ok := core.AsValidation(c.err)
	if !ok {
		return fmt.Errorf("expected validation errors, got %v", c.err)
	}
	if !slices.ContainsFunc(problems, func(p core.ValidationError) bool { return p.Code == code }) {
		return fmt.Errorf("expected problem %s in %v", code, problems)
	}
	return nil
}

func (c *transferTestContext) hasAllocated(product, warehouse string, want int) error {
	rec, err := c.mem.GetAllocation(c.ctx, core.AllocationKey{ProductID: product, WarehouseID: warehouse})
	if err != nil {
		return err
	}
	var got int64
	if rec != nil {
		got = rec.AllocatedQuantity
	}
	if got != int64(want) {
		return fmt.Errorf("expected %s at %s to have %d allocated, got %d", product, warehouse, want, got)
	}
	return nil
}

func (c *transferTestContext) theTotalAllocatedIs(product string, want int) error {
	recs, err := c.mem.ListAllocations(c.ctx, core.AllocationFilter{ProductID: product})
	if err != nil {
		return err
	}
	var total int64
	for _, r := range recs {
		total += r.AllocatedQuantity
	}
	if total != int64(want) {
		return fmt.Errorf("expected %d of %s in total, got %d", want, product, total)
	}
	return nil
}

func (c *transferTestContext) theProposalIsValid() error {
	if !c.proposal.Valid {
		return fmt.Errorf("expected a valid proposal, got errors %v", c.proposal.Errors)
	}
	return nil
}

func (c *transferTestContext) theProposedSourceIs(product, source string) error {
	for _, m := range c.proposal.Moves {
		if m.ProductID == product {
			if m.SourceWarehouseID != source {
				return fmt.Errorf("expected source %s for %s, got %s", source, product, m.SourceWarehouseID)
			}
			return nil
		}
	}
	return fmt.Errorf("no proposed move for %s", product)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &transferTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^active warehouses "([^"]*)" and "([^"]*)"$`, tc.activeWarehouses)
	ctx.Step(`^an active warehouse "([^"]*)"$`, tc.anActiveWarehouse)
	ctx.Step(`^warehouse "([^"]*)" is inactive$`, tc.warehouseIsInactive)
	ctx.Step(`^product "([^"]*)" has (\d+) allocated and (\d+) safety stock at "([^"]*)"$`, tc.productHasStock)

	// When steps
	ctx.Step(`^I transfer "?([0-9.]+)"? of "([^"]*)" from "([^"]*)" to "([^"]*)"$`, tc.iTransfer)
	ctx.Step(`^I propose moving (\d+) of "([^"]*)" to "([^"]*)"$`, tc.iProposeMoving)

	// Then steps
	ctx.Step(`^the transfer is "([^"]*)"$`, tc.theTransferIs)
	ctx.Step(`^the request is rejected with "([^"]*)"$`, tc.theRequestIsRejectedWith)
	ctx.Step(`^"([^"]*)" at "([^"]*)" has (\d+) allocated$`, tc.hasAllocated)
	ctx.Step(`^the total allocated of "([^"]*)" is (\d+)$`, tc.theTotalAllocatedIs)
	ctx.Step(`^the proposal is valid$`, tc.theProposalIsValid)
	ctx.Step(`^the proposed source of "([^"]*)" is "([^"]*)"$`, tc.theProposedSourceIs)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/transfer.feature"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/shopspring/decimal"
)

const usage = "Available: warehouses, products <warehouse>, summary [warehouse], transfer <from> <to> <product> <qty> [notes], sweep"

// Run executes a one-shot CLI command, writing human-readable output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("no command given\n" + usage)
	}

	switch args[0] {
	case "warehouses", "wh":
		result, err := svc.ListWarehouses(ctx)
		if err != nil {
			return fmt.Errorf("failed to list warehouses: %w", err)
		}
		printWarehouses(out, result)

	case "products", "prod":
		if len(args) < 2 {
			return errors.New("usage: app products <warehouse>")
		}
		result, err := svc.ListWarehouseProducts(ctx, args[1])
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}
		printWarehouseStock(out, result)

	case "summary", "sum":
		warehouseID := ""
		if len(args) > 1 {
			warehouseID = args[1]
		}
		summary, err := svc.GetSummary(ctx, warehouseID)
		if err != nil {
			return fmt.Errorf("failed to summarise inventory: %w", err)
		}
		printSummary(out, warehouseID, summary)

	case "transfer", "mv":
		if len(args) < 5 {
			return errors.New("usage: app transfer <from> <to> <product> <qty> [notes]")
		}
		qty, err := decimal.NewFromString(args[4])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[4])
		}
		req := app.CreateTransferRequest{
			FromWarehouseID: args[1],
			ToWarehouseID:   args[2],
			ProductID:       args[3],
			Quantity:        qty,
			RequestedBy:     "cli",
		}
		if len(args) > 5 {
			req.Notes = strings.Join(args[5:], " ")
		}
		result, err := svc.CreateTransfer(ctx, req)
		if err != nil {
			return describeError(err)
		}
		printTransfer(out, result)

	case "sweep":
		result, err := svc.RunScheduledTransfers(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], usage)
	}
	return nil
}

// describeError spells out every validation problem on its own line.
func describeError(err error) error {
	problems, ok := core.AsValidation(err)
	if !ok {
		return fmt.Errorf("transfer failed: %w", err)
	}
	var b strings.Builder
	b.WriteString("transfer rejected:")
	for _, p := range problems {
		fmt.Fprintf(&b, "\n  - %s [%s]: %s", p.Field, p.Code, p.Message)
	}
	return errors.New(b.String())
}

func printWarehouses(out io.Writer, result *app.WarehouseListResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 70))
	fmt.Fprintf(out, "  %-10s %-24s %-12s %-9s %10s\n", "ID", "NAME", "REGION", "STATUS", "STOCK")
	fmt.Fprintln(out, strings.Repeat("-", 70))
	for _, w := range result.Warehouses {
		fmt.Fprintf(out, "  %-10s %-24s %-12s %-9s %10d\n", w.ID, w.Name, w.Region, w.Status, w.CurrentStock)
	}
	fmt.Fprintln(out, strings.Repeat("=", 70))
}

func printWarehouseStock(out io.Writer, result *app.WarehouseStockResult) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  WAREHOUSE %s\n", result.WarehouseID)
	fmt.Fprintln(out, strings.Repeat("=", 78))
	fmt.Fprintf(out, "  %-10s %-12s %-20s %8s %8s %8s  %s\n", "PRODUCT", "SKU", "NAME", "ALLOC", "SAFETY", "AVAIL", "STATUS")
	fmt.Fprintln(out, strings.Repeat("-", 78))
	for _, p := range result.Products {
		fmt.Fprintf(out, "  %-10s %-12s %-20s %8d %8d %8d  %s\n",
			p.ProductID, p.SKU, p.Name, p.AllocatedQuantity, p.SafetyStock, p.Available, p.Status)
	}
	fmt.Fprintln(out, strings.Repeat("=", 78))
}

func printSummary(out io.Writer, warehouseID string, s *core.InventorySummary) {
	scope := "ALL WAREHOUSES"
	if warehouseID != "" {
		scope = "WAREHOUSE " + warehouseID
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, strings.Repeat("=", 40))
	fmt.Fprintf(out, "  INVENTORY SUMMARY: %s\n", scope)
	fmt.Fprintln(out, strings.Repeat("-", 40))
	fmt.Fprintf(out, "  %-20s %17d\n", "Items", s.TotalItems)
	fmt.Fprintf(out, "  %-20s %17d\n", "Low stock", s.LowStockItems)
	fmt.Fprintf(out, "  %-20s %17d\n", "Out of stock", s.OutOfStockItems)
	fmt.Fprintf(out, "  %-20s %17d\n", "Total quantity", s.TotalQuantity)
	fmt.Fprintf(out, "  %-20s %17d\n", "Reserved", s.TotalReserved)
	fmt.Fprintf(out, "  %-20s %17s\n", "Total value", s.TotalValue.StringFixed(2))
	fmt.Fprintln(out, strings.Repeat("=", 40))
}

func printTransfer(out io.Writer, r *core.TransferResult) {
	t := r.Transfer
	fmt.Fprintf(out, "Transfer %s %s: %d x %s %s -> %s\n", t.ID, t.Status, t.Quantity, t.ProductID, t.FromWarehouseID, t.ToWarehouseID)
	fmt.Fprintf(out, "  %s: %d allocated, %d available (%s)\n", r.Source.WarehouseID, r.Source.AllocatedQuantity, r.Source.Available, r.Source.Status)
	fmt.Fprintf(out, "  %s: %d allocated, %d available (%s)\n", r.Destination.WarehouseID, r.Destination.AllocatedQuantity, r.Destination.Available, r.Destination.Status)
}

package app

import "inventory-ledger/internal/core"

// WarehouseListResult is returned by ListWarehouses.
type WarehouseListResult struct {
	Warehouses []core.WarehouseOverview
}

// WarehouseStockResult is returned by ListWarehouseProducts.
type WarehouseStockResult struct {
	WarehouseID string
	Products    []core.WarehouseProduct
}

// TransferListResult is returned by ListTransfers.
type TransferListResult struct {
	Transfers []core.TransferRecord
}

package web

import (
	"net/http"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiListWarehouses handles GET /api/warehouses.
func (h *Handler) apiListWarehouses(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListWarehouses(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	warehouses := result.Warehouses
	if warehouses == nil {
		warehouses = []core.WarehouseOverview{}
	}
	writeJSON(w, map[string]any{"warehouses": warehouses})
}

// apiWarehouseProducts handles GET /api/warehouses/{id}/products.
func (h *Handler) apiWarehouseProducts(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListWarehouseProducts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	products := result.Products
	if products == nil {
		products = []core.WarehouseProduct{}
	}
	writeJSON(w, map[string]any{"warehouse_id": result.WarehouseID, "products": products})
}

// apiSummary handles GET /api/inventory/summary[?warehouse_id=].
func (h *Handler) apiSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.GetSummary(r.Context(), r.URL.Query().Get("warehouse_id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}

// apiAdjustStock handles POST /api/inventory/adjustments.
func (h *Handler) apiAdjustStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID        string `json:"product_id"`
		WarehouseID      string `json:"warehouse_id"`
		QuantityDelta    int64  `json:"quantity_delta"`
		SafetyStockDelta int64  `json:"safety_stock_delta"`
		Reason           string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, err := h.svc.AdjustStock(r.Context(), app.AdjustStockRequest{
		ProductID:        body.ProductID,
		WarehouseID:      body.WarehouseID,
		QuantityDelta:    body.QuantityDelta,
		SafetyStockDelta: body.SafetyStockDelta,
		Reason:           body.Reason,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

// apiSetThresholds handles PUT /api/inventory/{productID}/{warehouseID}/thresholds.
func (h *Handler) apiSetThresholds(w http.ResponseWriter, r *http.Request) {
	var body core.Thresholds
	if !decodeJSON(w, r, &body) {
		return
	}

	snap, err := h.svc.SetThresholds(r.Context(), app.SetThresholdsRequest{
		ProductID:    chi.URLParam(r, "productID"),
		WarehouseID:  chi.URLParam(r, "warehouseID"),
		SafetyStock:  body.SafetyStock,
		ReorderPoint: body.ReorderPoint,
		MaxStock:     body.MaxStock,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, snap)
}

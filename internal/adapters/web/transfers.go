package web

import (
	"net/http"
	"strconv"
	"time"

	"inventory-ledger/internal/app"
	"inventory-ledger/internal/core"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const maxTransferListLimit = 500

// apiCreateTransfer handles POST /api/transfers. A transfer applied now returns
// 201; one queued for a future date returns 202. The body is a
// core.TransferResult: transfer.id is the transfer id, transfer.status tells
// applied from queued, and source/destination are the updated rows. Failures
// use the error envelope instead, with transfer_id set on a 409 conflict.
func (h *Handler) apiCreateTransfer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FromWarehouseID string          `json:"from_warehouse_id"`
		ToWarehouseID   string          `json:"to_warehouse_id"`
		ProductID       string          `json:"product_id"`
		Quantity        decimal.Decimal `json:"quantity"`
		Priority        string          `json:"priority"`
		Reason          string          `json:"reason"`
		Notes           string          `json:"notes"`
		ScheduledDate   *time.Time      `json:"scheduled_date"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CreateTransfer(r.Context(), app.CreateTransferRequest{
		FromWarehouseID: body.FromWarehouseID,
		ToWarehouseID:   body.ToWarehouseID,
		ProductID:       body.ProductID,
		Quantity:        body.Quantity,
		Priority:        body.Priority,
		Reason:          body.Reason,
		Notes:           body.Notes,
		ScheduledDate:   body.ScheduledDate,
		RequestedBy:     requestedBy(r),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.Transfer.Status == core.TransferPending {
		status = http.StatusAccepted
	}
	writeJSONStatus(w, status, result)
}

// apiListTransfers handles GET /api/transfers[?status=&product_id=&warehouse_id=&limit=].
func (h *Handler) apiListTransfers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := core.TransferFilter{
		Status:      core.TransferStatus(q.Get("status")),
		ProductID:   q.Get("product_id"),
		WarehouseID: q.Get("warehouse_id"),
		Limit:       100,
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, "limit must be a positive integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.Limit = min(n, maxTransferListLimit)
	}

	result, err := h.svc.ListTransfers(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"transfers": result.Transfers})
}

// apiGetTransfer handles GET /api/transfers/{id}.
func (h *Handler) apiGetTransfer(w http.ResponseWriter, r *http.Request) {
	t, err := h.svc.GetTransfer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, t)
}

// apiSweepTransfers handles POST /api/transfers/sweep.
func (h *Handler) apiSweepTransfers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunScheduledTransfers(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

type bulkMoveBody struct {
	TargetWarehouseID string              `json:"target_warehouse_id"`
	Items             []core.BulkMoveItem `json:"items"`
	Priority          string              `json:"priority"`
	Reason            string              `json:"reason"`
	Notes             string              `json:"notes"`
}

func (b bulkMoveBody) request(r *http.Request) app.BulkMoveRequest {
	items := make([]app.BulkMoveItem, len(b.Items))
	for i, it := range b.Items {
		items[i] = app.BulkMoveItem{
			ProductID:         it.ProductID,
			SourceWarehouseID: it.SourceWarehouseID,
			Quantity:          it.Quantity,
		}
	}
	return app.BulkMoveRequest{
		TargetWarehouseID: b.TargetWarehouseID,
		Items:             items,
		Priority:          b.Priority,
		Reason:            b.Reason,
		Notes:             b.Notes,
		RequestedBy:       requestedBy(r),
	}
}

// apiProposeBulkMove handles POST /api/bulk-moves/propose. An invalid proposal
// is still a 200: the per-item errors are the answer.
func (h *Handler) apiProposeBulkMove(w http.ResponseWriter, r *http.Request) {
	var body bulkMoveBody
	if !decodeJSON(w, r, &body) {
		return
	}
	proposal, err := h.svc.ProposeBulkMove(r.Context(), body.request(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, proposal)
}

// apiConfirmBulkMove handles POST /api/bulk-moves/confirm.
func (h *Handler) apiConfirmBulkMove(w http.ResponseWriter, r *http.Request) {
	var body bulkMoveBody
	if !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.ConfirmBulkMove(r.Context(), body.request(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	type response struct {
		*core.BulkMoveResult
		Partial bool `json:"partial"`
	}
	writeJSON(w, response{BulkMoveResult: result, Partial: result.Partial()})
}

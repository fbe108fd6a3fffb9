package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-ledger/internal/app"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	logger    *zap.Logger
	router    chi.Router
	jwtSecret string
}

// NewHandler creates and wires the chi router with all routes. An empty
// jwtSecret disables authentication.
func NewHandler(svc app.ApplicationService, logger *zap.Logger, allowedOrigins []string, jwtSecret string) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		svc:       svc,
		logger:    logger,
		jwtSecret: jwtSecret,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recoverer(logger))
	r.Use(CORS(allowedOrigins))

	// ── Health (public) ───────────────────────────────────────────────────────
	r.Get("/api/health", h.health)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// ── Inventory ─────────────────────────────────────────────────────────
		r.Get("/api/warehouses", h.apiListWarehouses)
		r.Get("/api/warehouses/{id}/products", h.apiWarehouseProducts)
		r.Get("/api/inventory/summary", h.apiSummary)
		r.Post("/api/inventory/adjustments", h.apiAdjustStock)
		r.Put("/api/inventory/{productID}/{warehouseID}/thresholds", h.apiSetThresholds)

		// ── Transfers ─────────────────────────────────────────────────────────
		r.Post("/api/transfers", h.apiCreateTransfer)
		r.Get("/api/transfers", h.apiListTransfers)
		r.Post("/api/transfers/sweep", h.apiSweepTransfers)
		r.Get("/api/transfers/{id}", h.apiGetTransfer)

		// ── Bulk moves ────────────────────────────────────────────────────────
		r.Post("/api/bulk-moves/propose", h.apiProposeBulkMove)
		r.Post("/api/bulk-moves/confirm", h.apiConfirmBulkMove)
	})

	h.router = r
	return r
}

// health reports liveness; it does not touch storage.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

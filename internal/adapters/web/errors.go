package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"inventory-ledger/internal/core"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error      string                 `json:"error"`
	Code       string                 `json:"code"`
	RequestID  string                 `json:"request_id,omitempty"`
	Problems   []core.ValidationError `json:"problems,omitempty"`
	TransferID string                 `json:"transfer_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	resp.RequestID = requestIDFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeServiceError maps a core error to its HTTP status. Anything unrecognised
// is logged and reported as 500 without leaking the cause.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if problems, ok := core.AsValidation(err); ok {
		writeErrorResponse(w, r, errorResponse{
			Error:    "request failed validation",
			Code:     "VALIDATION_FAILED",
			Problems: problems,
		}, http.StatusUnprocessableEntity)
		return
	}

	var conflict *core.ConflictError
	if errors.As(err, &conflict) {
		writeErrorResponse(w, r, errorResponse{
			Error:      conflict.Error(),
			Code:       "CONFLICT",
			TransferID: conflict.TransferID,
		}, http.StatusConflict)
		return
	}
	if errors.Is(err, core.ErrTransferNotPending) || errors.Is(err, core.ErrNegativeAllocation) {
		writeError(w, r, err.Error(), "CONFLICT", http.StatusConflict)
		return
	}

	if errors.Is(err, core.ErrQuantityOverflow) {
		writeError(w, r, err.Error(), "QUANTITY_OVERFLOW", http.StatusUnprocessableEntity)
		return
	}

	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		writeError(w, r, notFound.Error(), "NOT_FOUND", http.StatusNotFound)
		return
	}

	h.logger.Error("request failed",
		zap.String("request_id", requestIDFromContext(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
}

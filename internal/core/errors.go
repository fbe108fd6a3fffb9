package core

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes surfaced to callers alongside the message.
const (
	CodeRequired          = "REQUIRED"
	CodeInvalidQuantity   = "INVALID_QUANTITY"
	CodeSameWarehouse     = "SAME_WAREHOUSE"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeInactive          = "WAREHOUSE_INACTIVE"
	CodeInvalidValue      = "INVALID_VALUE"
)

// ErrNegativeAllocation is returned by a RejectNegative delta that would push a
// quantity below zero. The record is left unchanged.
var ErrNegativeAllocation = errors.New("allocation delta would produce a negative quantity")

// ErrQuantityOverflow is returned by a delta whose result does not fit in an
// int64. The record is left unchanged.
var ErrQuantityOverflow = errors.New("allocation delta overflows the quantity range")

// ErrTransferNotPending is returned when executing a transfer that already
// reached a terminal status.
var ErrTransferNotPending = errors.New("transfer is not pending")

// ValidationError is one client-fixable problem with a request.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors carries every violated rule of a request at once.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationErrors) add(field, code, format string, args ...any) {
	*v = append(*v, ValidationError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when no problem was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// ConflictError means the quantity validated earlier is no longer available at
// commit time because a concurrent mutation consumed it. Callers should refresh
// and retry instead of treating it as bad input.
type ConflictError struct {
	ProductID   string
	WarehouseID string
	Requested   int64
	Available   int64
	TransferID  string // failed transfer record, when one was persisted
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("stock changed concurrently for product %s at warehouse %s: requested %d, available %d",
		e.ProductID, e.WarehouseID, e.Requested, e.Available)
}

// NotFoundError means a referenced warehouse, product or transfer does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err wraps a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// AsValidation extracts the validation problems from err, if any.
func AsValidation(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// failureReason renders err as the short reason stored on failed transfers and
// reported for failed bulk items.
func failureReason(err error) string {
	if ve, ok := AsValidation(err); ok {
		msgs := make([]string, len(ve))
		for i, e := range ve {
			msgs[i] = e.Message
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

package core

import (
	"context"
	"time"
)

type EventType string

const (
	EventTransferCompleted EventType = "transfer.completed"
	EventTransferScheduled EventType = "transfer.scheduled"
	EventTransferFailed    EventType = "transfer.failed"
	EventAllocationAdjust  EventType = "allocation.adjusted"
)

// AllocationEvent announces a committed ledger change to dashboards so they can
// apply the new snapshots instead of reloading everything.
type AllocationEvent struct {
	Type        EventType            `json:"type"`
	Transfer    *TransferRecord      `json:"transfer,omitempty"`
	Allocations []AllocationSnapshot `json:"allocations,omitempty"`
	OccurredAt  time.Time            `json:"occurred_at"`
}

// Publisher delivers events after commit. Delivery is best effort.
type Publisher interface {
	Publish(ctx context.Context, ev AllocationEvent) error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, AllocationEvent) error { return nil }

package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-ledger/internal/core"
)

type recordingClient struct {
	channel string
	message []byte
	err     error
}

func (c *recordingClient) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	c.channel = channel
	c.message, _ = message.([]byte)
	return redis.NewIntResult(1, c.err)
}

func TestRedisPublisherEncodesEvent(t *testing.T) {
	client := &recordingClient{}
	pub := NewRedisPublisher(client, "")

	ev := core.AllocationEvent{
		Type: core.EventTransferCompleted,
		Transfer: &core.TransferRecord{
			ID:              "t-1",
			FromWarehouseID: "W1",
			ToWarehouseID:   "W2",
			ProductID:       "P1",
			Quantity:        5,
			Status:          core.TransferCompleted,
		},
		Allocations: []core.AllocationSnapshot{
			core.Snapshot(core.AllocationRecord{ProductID: "P1", WarehouseID: "W1", AllocatedQuantity: 95}),
		},
		OccurredAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, pub.Publish(context.Background(), ev))

	assert.Equal(t, DefaultChannel, client.channel)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(client.message, &decoded))
	assert.Equal(t, "transfer.completed", decoded["type"])
	allocs := decoded["allocations"].([]any)
	require.Len(t, allocs, 1)
	assert.Equal(t, "IN_STOCK", allocs[0].(map[string]any)["status"])
}

func TestRedisPublisherWrapsClientError(t *testing.T) {
	boom := errors.New("connection refused")
	pub := NewRedisPublisher(&recordingClient{err: boom}, "custom")

	err := pub.Publish(context.Background(), core.AllocationEvent{Type: core.EventAllocationAdjust})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "custom")
}

// Package events delivers committed ledger changes to subscribers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"inventory-ledger/internal/config"
	"inventory-ledger/internal/core"
)

const DefaultChannel = "inventory:allocations"

// publishClient is the part of *redis.Client the publisher needs.
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes each event as JSON on a pub/sub channel.
type RedisPublisher struct {
	client  publishClient
	channel string
}

func NewRedisPublisher(client publishClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel}
}

// NewRedisClient builds a client from cfg. The caller owns Close.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func (p *RedisPublisher) Publish(ctx context.Context, ev core.AllocationEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", ev.Type, err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish %s event on %s: %w", ev.Type, p.channel, err)
	}
	return nil
}

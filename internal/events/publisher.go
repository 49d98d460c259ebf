// Package events publishes committed ledger operations to downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bankledger/backend/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// LedgerEvent describes one committed engine operation.
type LedgerEvent struct {
	Reference   uuid.UUID                  `json:"reference"`
	Operation   string                     `json:"operation"`
	Records     []models.TransactionRecord `json:"records"`
	CommittedAt time.Time                  `json:"committedAt"`
}

// Publisher is called after commit. Implementations must not assume the
// caller retries on error.
type Publisher interface {
	Publish(ctx context.Context, event LedgerEvent) error
}

// RedisPublisher appends events as JSON to a Redis list.
type RedisPublisher struct {
	client *redis.Client
	queue  string
}

func NewRedisPublisher(client *redis.Client, queue string) *RedisPublisher {
	return &RedisPublisher{client: client, queue: queue}
}

func (p *RedisPublisher) Publish(ctx context.Context, event LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal ledger event: %w", err)
	}
	if err := p.client.RPush(ctx, p.queue, data).Err(); err != nil {
		return fmt.Errorf("push ledger event %s: %w", event.Reference, err)
	}
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, LedgerEvent) error { return nil }

var (
	_ Publisher = (*RedisPublisher)(nil)
	_ Publisher = NopPublisher{}
)

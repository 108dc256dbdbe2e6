package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

// Redis хранит снимок одним ключом; TTL ключа равен окну хранения.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

var _ domain.SnapshotStore = (*Redis)(nil)

// NewRedis создаёт хранилище снимков в Redis.
func NewRedis(client *redis.Client, key string, ttl time.Duration) *Redis {
	return &Redis{client: client, key: key, ttl: ttl}
}

// Load читает снимок.
func (r *Redis) Load(ctx context.Context) ([]domain.IntelRecord, error) {
	start := time.Now()
	data, err := r.client.Get(ctx, r.key).Bytes()
	metrics.ObserveNetworkRequest("redis", "get", r.key, start, err)
	if err != nil {
		return nil, fmt.Errorf("store: redis get: %w", err)
	}
	return Decode(data)
}

// Save перезаписывает снимок.
func (r *Redis) Save(ctx context.Context, records []domain.IntelRecord) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("store: encode snapshot: %w", err)
	}
	start := time.Now()
	err = r.client.Set(ctx, r.key, data, r.ttl).Err()
	metrics.ObserveNetworkRequest("redis", "set", r.key, start, err)
	if err != nil {
		return fmt.Errorf("store: redis set: %w", err)
	}
	return nil
}

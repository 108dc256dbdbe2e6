package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"aegis-intel/internal/infra/metrics"
)

// RedisList публикует сообщения в список Redis (LPUSH), потребители читают BRPOP.
type RedisList struct {
	client *redis.Client
	key    string
}

// NewRedisList создаёт публикатора по указанному ключу.
func NewRedisList(client *redis.Client, key string) *RedisList {
	return &RedisList{client: client, key: key}
}

// Publish сериализует сообщения и кладёт их в список одной командой.
func (q *RedisList) Publish(ctx context.Context, messages ...any) error {
	if len(messages) == 0 {
		return nil
	}
	payloads := make([]any, 0, len(messages))
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		payloads = append(payloads, payload)
	}
	start := time.Now()
	err := q.client.LPush(ctx, q.key, payloads...).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push messages: %w", err)
	}
	return nil
}

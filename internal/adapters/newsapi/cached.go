package newsapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/cache"
)

type byteCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cached кэширует ответы источника на ttl, чтобы повторные сканы не тратили лимит API.
// Ошибки источника не кэшируются.
type Cached struct {
	next  domain.NewsSource
	cache byteCache
	ttl   time.Duration
	log   zerolog.Logger
}

var _ domain.NewsSource = (*Cached)(nil)

// NewCached оборачивает источник.
func NewCached(next domain.NewsSource, c byteCache, ttl time.Duration, log zerolog.Logger) *Cached {
	return &Cached{next: next, cache: c, ttl: ttl, log: log}
}

// Fetch возвращает закэшированный ответ или обращается к источнику.
func (c *Cached) Fetch(ctx context.Context, q domain.NewsQuery) ([]domain.RawItem, error) {
	q = Normalize(q)
	key := cacheKey(q)
	data, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var items []domain.RawItem
		if err := json.Unmarshal(data, &items); err == nil {
			c.log.Debug().Int("items", len(items)).Msg("newsapi: ответ из кэша")
			return items, nil
		}
	case !errors.Is(err, cache.ErrMiss):
		c.log.Warn().Err(err).Msg("newsapi: кэш недоступен")
	}

	items, err := c.next.Fetch(ctx, q)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(items); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.log.Warn().Err(err).Msg("newsapi: не удалось сохранить ответ в кэш")
		}
	}
	return items, nil
}

func cacheKey(q domain.NewsQuery) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d", q.Text, q.Language, q.SortBy, q.PageSize)))
	return "newsapi:" + hex.EncodeToString(sum[:8])
}

package intel

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

// DefaultRetention — окно хранения записей.
const DefaultRetention = 24 * time.Hour

// IngestResult описывает итог одной вставки.
type IngestResult struct {
	Added    []domain.IntelRecord
	Dropped  int
	Rejected int
	Evicted  int
	Active   int
}

// Cache хранит дедуплицированные записи за скользящее окно.
// Вытеснение выполняется при каждой записи (Ingest, Load); чтение записи не вытесняет.
type Cache struct {
	mu        sync.RWMutex
	records   []domain.IntelRecord
	urls      map[string]struct{}
	retention time.Duration
	now       domain.Clock
	store     domain.SnapshotStore
	log       zerolog.Logger
}

// Option настраивает кэш.
type Option func(*Cache)

// WithClock подменяет источник времени.
func WithClock(now domain.Clock) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithStore подключает хранилище снимков.
func WithStore(store domain.SnapshotStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithRetention задаёт окно хранения.
func WithRetention(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.retention = d
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) { c.log = logger }
}

// NewCache создаёт пустой кэш.
func NewCache(opts ...Option) *Cache {
	c := &Cache{
		urls:      make(map[string]struct{}),
		retention: DefaultRetention,
		now:       time.Now,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load восстанавливает кэш из хранилища. Устаревшие записи отбрасываются сразу,
// любая ошибка хранилища даёт пустой результат.
func (c *Cache) Load(ctx context.Context) []domain.IntelRecord {
	if c.store == nil {
		return nil
	}
	loaded, err := c.store.Load(ctx)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("load").Inc()
		c.log.Warn().Err(err).Msg("intel: снимок не загружен, начинаем с пустого кэша")
		loaded = nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	cutoff := c.now().Add(-c.retention)
	c.records = c.records[:0]
	c.urls = make(map[string]struct{}, len(loaded))
	evicted := 0
	for _, rec := range loaded {
		rec.URL = strings.TrimSpace(rec.URL)
		if rec.URL == "" || rec.IngestedAt.IsZero() {
			continue
		}
		if rec.IngestedAt.Before(cutoff) {
			evicted++
			continue
		}
		if _, ok := c.urls[rec.URL]; ok {
			continue
		}
		c.urls[rec.URL] = struct{}{}
		c.records = append(c.records, rec)
	}
	// снимок мог быть записан не по порядку; метки не меняем, только порядок
	sort.SliceStable(c.records, func(i, j int) bool {
		return c.records[i].IngestedAt.Before(c.records[j].IngestedAt)
	})
	metrics.ObserveIngest(len(c.records), 0, evicted, 0)
	c.log.Info().Int("records", len(c.records)).Int("expired", evicted).Msg("intel: снимок загружен")
	return c.snapshotLocked()
}

// Ingest добавляет новые записи, вытесняет устаревшие и сохраняет снимок,
// если добавлена хотя бы одна запись. Ошибка сохранения только логируется.
func (c *Cache) Ingest(ctx context.Context, candidates []domain.IntelRecord) IngestResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	var res IngestResult
	for _, cand := range candidates {
		cand.URL = strings.TrimSpace(cand.URL)
		if cand.URL == "" {
			res.Rejected++
			continue
		}
		if _, ok := c.urls[cand.URL]; ok {
			res.Dropped++
			continue
		}
		stamp := now
		if n := len(c.records); n > 0 && stamp.Before(c.records[n-1].IngestedAt) {
			stamp = c.records[n-1].IngestedAt
		}
		cand.IngestedAt = stamp
		c.urls[cand.URL] = struct{}{}
		c.records = append(c.records, cand)
		res.Added = append(res.Added, cand)
	}
	res.Evicted = c.evictLocked(now)
	res.Active = len(c.records)
	metrics.ObserveIngest(res.Active, len(res.Added), res.Evicted, res.Rejected)

	if len(res.Added) > 0 && c.store != nil {
		if err := c.store.Save(ctx, c.snapshotLocked()); err != nil {
			metrics.StoreErrors.WithLabelValues("save").Inc()
			c.log.Warn().Err(err).Msg("intel: не удалось сохранить снимок")
		}
	}
	c.log.Debug().
		Int("added", len(res.Added)).
		Int("dropped", res.Dropped).
		Int("rejected", res.Rejected).
		Int("evicted", res.Evicted).
		Int("active", res.Active).
		Msg("intel: ingest")
	return res
}

// ListActive возвращает копию записей в порядке вставки.
func (c *Cache) ListActive() []domain.IntelRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshotLocked()
}

// Len возвращает количество записей.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

func (c *Cache) evictLocked(now time.Time) int {
	cutoff := now.Add(-c.retention)
	kept := c.records[:0]
	evicted := 0
	for _, rec := range c.records {
		if rec.IngestedAt.Before(cutoff) {
			delete(c.urls, rec.URL)
			evicted++
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(c.records); i++ {
		c.records[i] = domain.IntelRecord{}
	}
	c.records = kept
	return evicted
}

func (c *Cache) snapshotLocked() []domain.IntelRecord {
	out := make([]domain.IntelRecord, len(c.records))
	copy(out, c.records)
	return out
}

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS intel_snapshot (
	position     INT PRIMARY KEY,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT NOT NULL,
	description  TEXT NOT NULL DEFAULT '',
	source       TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ,
	threat       SMALLINT NOT NULL,
	lat          DOUBLE PRECISION,
	lon          DOUBLE PRECISION,
	loc          TEXT NOT NULL DEFAULT '',
	summary      TEXT NOT NULL DEFAULT '',
	ingested_at  TIMESTAMPTZ NOT NULL
)`

// Postgres хранит снимок в таблице intel_snapshot; каждое сохранение переписывает её целиком.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.SnapshotStore = (*Postgres)(nil)

// NewPostgres создаёт хранилище и при необходимости создаёт таблицу.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Load читает снимок в порядке вставки.
func (p *Postgres) Load(ctx context.Context) ([]domain.IntelRecord, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT url, title, description, source, published_at, threat, lat, lon, loc, summary, ingested_at
FROM intel_snapshot
ORDER BY position`)
	if err != nil {
		metrics.ObserveNetworkRequest("postgres", "snapshot_select", "intel_snapshot", start, err)
		return nil, fmt.Errorf("store: select snapshot: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.IntelRecord, error) {
		var (
			r      domain.IntelRecord
			threat int16
		)
		err := row.Scan(&r.URL, &r.Title, &r.Description, &r.Source, &r.PublishedAt, &threat, &r.Lat, &r.Lon, &r.Loc, &r.Sum, &r.IngestedAt)
		r.Threat = domain.ClampThreat(int(threat))
		return r, err
	})
	metrics.ObserveNetworkRequest("postgres", "snapshot_select", "intel_snapshot", start, err)
	if err != nil {
		return nil, fmt.Errorf("store: scan snapshot: %w", err)
	}
	return records, nil
}

// Save переписывает таблицу в одной транзакции.
func (p *Postgres) Save(ctx context.Context, records []domain.IntelRecord) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM intel_snapshot`); err != nil {
			return err
		}
		rows := make([][]any, 0, len(records))
		for i, r := range records {
			rows = append(rows, []any{i, r.URL, r.Title, r.Description, r.Source, r.PublishedAt, int16(r.Threat), r.Lat, r.Lon, r.Loc, r.Sum, r.IngestedAt.UTC()})
		}
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"intel_snapshot"},
			[]string{"position", "url", "title", "description", "source", "published_at", "threat", "lat", "lon", "loc", "summary", "ingested_at"},
			pgx.CopyFromRows(rows))
		return err
	})
	metrics.ObserveNetworkRequest("postgres", "snapshot_rewrite", "intel_snapshot", start, err)
	if err != nil {
		return fmt.Errorf("store: rewrite snapshot: %w", err)
	}
	return nil
}

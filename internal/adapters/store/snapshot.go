package store

import (
	"encoding/json"
	"fmt"
	"time"

	"aegis-intel/internal/domain"
)

// snapshotRecord — форма записи в снимке. Время хранится текстом RFC 3339 в UTC.
type snapshotRecord struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Source      string   `json:"source,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
	Threat      int      `json:"threat"`
	Lat         *float64 `json:"lat,omitempty"`
	Lon         *float64 `json:"lon,omitempty"`
	Loc         string   `json:"loc"`
	Sum         string   `json:"sum"`
	Timestamp   string   `json:"timestamp"`
}

// Encode сериализует записи в JSON-массив снимка.
func Encode(records []domain.IntelRecord) ([]byte, error) {
	out := make([]snapshotRecord, 0, len(records))
	for _, r := range records {
		sr := snapshotRecord{
			URL:         r.URL,
			Title:       r.Title,
			Description: r.Description,
			Source:      r.Source,
			Threat:      r.Threat,
			Lat:         r.Lat,
			Lon:         r.Lon,
			Loc:         r.Loc,
			Sum:         r.Sum,
			Timestamp:   r.IngestedAt.UTC().Format(time.RFC3339Nano),
		}
		if r.PublishedAt != nil {
			sr.PublishedAt = r.PublishedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, sr)
	}
	return json.MarshalIndent(out, "", "  ")
}

// Decode разбирает снимок. Любая неразборчивая метка времени отклоняет снимок целиком.
func Decode(data []byte) ([]domain.IntelRecord, error) {
	var raw []snapshotRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("store: decode snapshot: %w", err)
	}
	out := make([]domain.IntelRecord, 0, len(raw))
	for i, sr := range raw {
		ts, err := time.Parse(time.RFC3339Nano, sr.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("store: record %d: timestamp %q: %w", i, sr.Timestamp, err)
		}
		r := domain.IntelRecord{
			URL:         sr.URL,
			Title:       sr.Title,
			Description: sr.Description,
			Source:      sr.Source,
			Threat:      domain.ClampThreat(sr.Threat),
			Lat:         sr.Lat,
			Lon:         sr.Lon,
			Loc:         sr.Loc,
			Sum:         sr.Sum,
			IngestedAt:  ts,
		}
		if sr.PublishedAt != "" {
			if p, err := time.Parse(time.RFC3339, sr.PublishedAt); err == nil {
				r.PublishedAt = &p
			}
		}
		out = append(out, r)
	}
	return out, nil
}

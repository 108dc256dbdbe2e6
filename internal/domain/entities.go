package domain

import "time"

// IntelRecord описывает проанализированную новость, которая хранится в кэше.
type IntelRecord struct {
	URL         string     `json:"url"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Threat      int        `json:"threat"`
	Lat         *float64   `json:"lat,omitempty"`
	Lon         *float64   `json:"lon,omitempty"`
	Loc         string     `json:"loc"`
	Sum         string     `json:"sum"`
	IngestedAt  time.Time  `json:"ingested_at"`
}

// Coordinates возвращает координаты, если классификатор их указал.
func (r IntelRecord) Coordinates() (lat, lon float64, ok bool) {
	if r.Lat == nil || r.Lon == nil {
		return 0, 0, false
	}
	return *r.Lat, *r.Lon, true
}

// Critical сообщает, что угроза выше порога подсветки.
func (r IntelRecord) Critical() bool {
	return r.Threat > CriticalThreat
}

// RawItem — статья из новостного API без классификации.
type RawItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url"`
	Source      string     `json:"source,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Annotation — разметка одной статьи от классификатора.
type Annotation struct {
	Index    int
	Relevant bool
	Threat   int
	Lat      *float64
	Lon      *float64
	Loc      string
	Sum      string
}

const (
	// MinThreat нижняя граница оценки угрозы.
	MinThreat = 1
	// MaxThreat верхняя граница оценки угрозы.
	MaxThreat = 10
	// CriticalThreat — записи строго выше считаются критическими.
	CriticalThreat = 7
)

// ClampThreat приводит оценку к диапазону 1–10.
func ClampThreat(v int) int {
	if v < MinThreat {
		return MinThreat
	}
	if v > MaxThreat {
		return MaxThreat
	}
	return v
}

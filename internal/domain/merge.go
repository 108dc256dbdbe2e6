package domain

import "strings"

const fallbackSummaryLimit = 200

// Merge собирает IntelRecord из статьи и разметки.
// Поля идентичности и происхождения берутся из статьи, поля оценки из разметки.
func Merge(raw RawItem, ann Annotation) IntelRecord {
	rec := IntelRecord{
		URL:         strings.TrimSpace(raw.URL),
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Source:      strings.TrimSpace(raw.Source),
		PublishedAt: raw.PublishedAt,
		Threat:      ClampThreat(ann.Threat),
		Lat:         ann.Lat,
		Lon:         ann.Lon,
		Loc:         strings.TrimSpace(ann.Loc),
		Sum:         strings.TrimSpace(ann.Sum),
	}
	if rec.Sum == "" {
		rec.Sum = clipRunes(rec.Description, fallbackSummaryLimit)
	}
	return rec
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}

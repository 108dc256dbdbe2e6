package scan

import (
	"sort"
	"strings"

	"aegis-intel/internal/domain"
)

const (
	// StatusOnline — в кэше есть записи.
	StatusOnline = "ONLINE"
	// StatusIdle — кэш пуст.
	StatusIdle = "IDLE"
)

// SortByThreat возвращает копию записей по убыванию угрозы; равные сохраняют порядок вставки.
func SortByThreat(records []domain.IntelRecord) []domain.IntelRecord {
	out := make([]domain.IntelRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Threat > out[j].Threat })
	return out
}

// FilterByLocation оставляет записи, у которых loc содержит подстроку без учёта регистра.
// Пустой фильтр возвращает все записи.
func FilterByLocation(records []domain.IntelRecord, loc string) []domain.IntelRecord {
	needle := strings.ToLower(strings.TrimSpace(loc))
	if needle == "" {
		return records
	}
	out := make([]domain.IntelRecord, 0, len(records))
	for _, rec := range records {
		if strings.Contains(strings.ToLower(rec.Loc), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// Critical оставляет записи с угрозой выше 7.
func Critical(records []domain.IntelRecord) []domain.IntelRecord {
	var out []domain.IntelRecord
	for _, rec := range records {
		if rec.Critical() {
			out = append(out, rec)
		}
	}
	return out
}

// Status возвращает ONLINE, если есть хотя бы одна запись.
func Status(records []domain.IntelRecord) string {
	if len(records) > 0 {
		return StatusOnline
	}
	return StatusIdle
}

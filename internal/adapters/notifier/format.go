package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"aegis-intel/internal/domain"
)

// FormatAlert собирает HTML-сообщение об угрозах для Telegram.
func FormatAlert(records []domain.IntelRecord, now time.Time) string {
	if len(records) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 <b>AEGIS: %s</b>\n", pluralThreats(len(records)))
	for _, rec := range records {
		b.WriteString("\n")
		loc := strings.ToUpper(strings.TrimSpace(rec.Loc))
		if loc == "" {
			loc = "UNKNOWN"
		}
		fmt.Fprintf(&b, "<b>[%s] LVL %d</b>\n", html.EscapeString(loc), rec.Threat)
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", html.EscapeString(rec.URL), html.EscapeString(rec.Title))
		if sum := strings.TrimSpace(rec.Sum); sum != "" {
			b.WriteString(html.EscapeString(sum) + "\n")
		}
		var meta []string
		if rec.Source != "" {
			meta = append(meta, html.EscapeString(rec.Source))
		}
		if rec.PublishedAt != nil {
			meta = append(meta, humanize.RelTime(*rec.PublishedAt, now, "ago", "from now"))
		}
		if lat, lon, ok := rec.Coordinates(); ok {
			meta = append(meta, fmt.Sprintf("%.2f, %.2f", lat, lon))
		}
		if len(meta) > 0 {
			b.WriteString("<i>" + strings.Join(meta, " · ") + "</i>\n")
		}
	}
	return strings.TrimSpace(b.String())
}

func pluralThreats(n int) string {
	if n == 1 {
		return "1 critical threat"
	}
	return humanize.Comma(int64(n)) + " critical threats"
}

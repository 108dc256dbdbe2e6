package notifier

import (
	"strings"
	"testing"
	"time"

	"aegis-intel/internal/domain"
)

func TestFormatAlert(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	published := now.Add(-3 * time.Hour)
	lat, lon := 50.45, 30.52
	text := FormatAlert([]domain.IntelRecord{{
		URL:         "https://n/1?a=1&b=2",
		Title:       "Strike <on> port",
		Source:      "Reuters",
		PublishedAt: &published,
		Threat:      9,
		Lat:         &lat,
		Lon:         &lon,
		Loc:         "Ukraine",
		Sum:         "Port hit",
	}}, now)

	for _, want := range []string{
		"1 critical threat",
		"[UKRAINE] LVL 9",
		"Strike &lt;on&gt; port",
		"a=1&amp;b=2",
		"3 hours ago",
		"50.45, 30.52",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("в сообщении нет %q:\n%s", want, text)
		}
	}
}

func TestFormatAlertEmpty(t *testing.T) {
	if FormatAlert(nil, time.Now()) != "" {
		t.Fatalf("пустой список не должен давать текст")
	}
}

package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"aegis-intel/internal/domain"
)

func sample() []domain.IntelRecord {
	lat, lon := 31.5, 34.47
	published := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
	return []domain.IntelRecord{
		{URL: "https://example.com/a", Title: "A", Threat: 9, Lat: &lat, Lon: &lon, Loc: "Gaza", Sum: "s", PublishedAt: &published,
			IngestedAt: time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)},
		{URL: "https://example.com/b", Title: "B", Threat: 2, Loc: "", Sum: "",
			IngestedAt: time.Date(2026, 3, 1, 12, 5, 0, 0, time.FixedZone("CET", 3600))},
	}
}

func TestEncodeDecodeKeepsURLsAndTimestamps(t *testing.T) {
	in := sample()
	data, err := Encode(in)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if !strings.Contains(string(data), `"timestamp": "2026-03-01T12:00:00.123456789Z"`) {
		t.Fatalf("ожидали RFC 3339 метку в UTC, получили %s", data)
	}
	out, err := Decode(data)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("ожидали %d записей, получили %d", len(in), len(out))
	}
	for i := range in {
		if out[i].URL != in[i].URL {
			t.Fatalf("url %d: %s != %s", i, out[i].URL, in[i].URL)
		}
		if !out[i].IngestedAt.Equal(in[i].IngestedAt) {
			t.Fatalf("метка %d: %v != %v", i, out[i].IngestedAt, in[i].IngestedAt)
		}
	}
	if _, _, ok := out[0].Coordinates(); !ok {
		t.Fatal("координаты потерялись")
	}
	if _, _, ok := out[1].Coordinates(); ok {
		t.Fatal("координаты появились из ниоткуда")
	}
	if out[0].PublishedAt == nil || !out[0].PublishedAt.Equal(*in[0].PublishedAt) {
		t.Fatal("дата публикации потерялась")
	}
}

func TestDecodeRejectsBadTimestamp(t *testing.T) {
	data := []byte(`[{"url":"a","timestamp":"2026-03-01T12:00:00Z"},{"url":"b","timestamp":"yesterday"}]`)
	if _, err := Decode(data); err == nil {
		t.Fatal("ожидали ошибку для неразборчивой метки")
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	if _, err := Decode([]byte(`[{"url":"a","timest`)); err == nil {
		t.Fatal("ожидали ошибку для обрезанного файла")
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intel.json")
	f := NewFile(path)
	if err := f.Save(context.Background(), sample()); err != nil {
		t.Fatalf("сохранение: %v", err)
	}
	if err := f.Save(context.Background(), sample()[:1]); err != nil {
		t.Fatalf("повторное сохранение: %v", err)
	}
	out, err := f.Load(context.Background())
	if err != nil {
		t.Fatalf("загрузка: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("файл должен перезаписываться целиком, получили %d записей", len(out))
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("временные файлы не должны оставаться, найдено %d", len(entries))
	}
}

func TestFileLoadMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "absent.json"))
	if _, err := f.Load(context.Background()); err == nil {
		t.Fatal("ожидали ошибку для отсутствующего файла")
	}
}

func TestFileSaveToMissingDirFails(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "no", "such", "dir.json"))
	if err := f.Save(context.Background(), sample()); err == nil {
		t.Fatal("ожидали ошибку записи")
	}
}

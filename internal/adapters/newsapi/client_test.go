package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"aegis-intel/internal/domain"
)

const sampleBody = `{"status":"ok","totalResults":3,"articles":[
{"source":{"id":null,"name":"Reuters"},"title":"Missile strike hits port","description":"Details","url":"https://example.com/1","publishedAt":"2026-03-01T10:15:00Z"},
{"source":{"name":"AP"},"title":"[Removed]","url":"https://removed.com"},
{"source":{"name":"BBC"},"title":"Troops mass at border","description":null,"url":"","publishedAt":"not a date"}]}`

func TestFetchParsesArticles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/everything" {
			t.Errorf("неожиданный путь %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("ключ не передан")
		}
		q := r.URL.Query()
		if q.Get("q") != "(military OR war)" || q.Get("language") != "en" || q.Get("sortBy") != "publishedAt" || q.Get("pageSize") != "15" {
			t.Errorf("неожиданные параметры %v", q)
		}
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer srv.Close()

	c := NewClient("secret", srv.URL, time.Second)
	items, err := c.Fetch(context.Background(), domain.NewsQuery{Text: "(military OR war)"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ожидали 2 статьи без заглушки [Removed], получили %d", len(items))
	}
	first := items[0]
	if first.URL != "https://example.com/1" || first.Source != "Reuters" || first.PublishedAt == nil {
		t.Fatalf("неожиданная статья %+v", first)
	}
	if !first.PublishedAt.Equal(time.Date(2026, 3, 1, 10, 15, 0, 0, time.UTC)) {
		t.Fatalf("неожиданная дата %v", first.PublishedAt)
	}
	if items[1].PublishedAt != nil || items[1].URL != "" {
		t.Fatalf("статья без url и с плохой датой проходит как есть: %+v", items[1])
	}
}

func TestFetchNon2xxYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"You have made too many requests"}`))
	}))
	defer srv.Close()

	items, err := NewClient("k", srv.URL, time.Second).Fetch(context.Background(), domain.NewsQuery{})
	if err == nil {
		t.Fatal("ожидали ошибку")
	}
	if len(items) != 0 {
		t.Fatalf("ожидали пустой список, получили %d", len(items))
	}
}

func TestFetchBrokenBodyYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	items, err := NewClient("k", srv.URL, time.Second).Fetch(context.Background(), domain.NewsQuery{})
	if err == nil || len(items) != 0 {
		t.Fatalf("ожидали ошибку и пустой список, получили %d %v", len(items), err)
	}
}

func TestFetchTransportErrorYieldsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()
	items, err := NewClient("k", srv.URL, time.Second).Fetch(context.Background(), domain.NewsQuery{})
	if err == nil || len(items) != 0 {
		t.Fatalf("ожидали ошибку и пустой список")
	}
}

func TestNormalizeClampsPageSize(t *testing.T) {
	cases := map[int]int{0: 15, 3: 10, 12: 12, 100: 20}
	for in, want := range cases {
		if got := Normalize(domain.NewsQuery{PageSize: in}).PageSize; got != want {
			t.Fatalf("pageSize %d: ожидали %d, получили %d", in, want, got)
		}
	}
	q := Normalize(domain.NewsQuery{})
	if q.Text != defaultQuery || q.Language != "en" || q.SortBy != "publishedAt" {
		t.Fatalf("неожиданные значения по умолчанию %+v", q)
	}
}

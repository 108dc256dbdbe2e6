package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

const (
	defaultBaseURL  = "https://newsapi.org/v2"
	defaultQuery    = "(military OR war OR missile OR conflict)"
	defaultPageSize = 15
	minPageSize     = 10
	maxPageSize     = 20
)

// Client выполняет поиск статей через /everything.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

var _ domain.NewsSource = (*Client)(nil)

// NewClient создаёт клиента новостного API.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type everythingResponse struct {
	Status   string    `json:"status"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Articles []article `json:"articles"`
}

type article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
}

// Normalize подставляет значения по умолчанию и ограничивает размер страницы 10–20.
func Normalize(q domain.NewsQuery) domain.NewsQuery {
	if strings.TrimSpace(q.Text) == "" {
		q.Text = defaultQuery
	}
	if q.Language == "" {
		q.Language = "en"
	}
	if q.SortBy == "" {
		q.SortBy = "publishedAt"
	}
	switch {
	case q.PageSize <= 0:
		q.PageSize = defaultPageSize
	case q.PageSize < minPageSize:
		q.PageSize = minPageSize
	case q.PageSize > maxPageSize:
		q.PageSize = maxPageSize
	}
	return q
}

// Fetch возвращает статьи; при любой ошибке список пуст.
func (c *Client) Fetch(ctx context.Context, q domain.NewsQuery) ([]domain.RawItem, error) {
	q = Normalize(q)
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("language", q.Language)
	params.Set("sortBy", q.SortBy)
	params.Set("pageSize", strconv.Itoa(q.PageSize))
	endpoint := c.baseURL + "/everything?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: build request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, err)
		return nil, fmt.Errorf("newsapi: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, err)
		return nil, fmt.Errorf("newsapi: read response: %w", err)
	}
	var parsed everythingResponse
	decodeErr := json.Unmarshal(body, &parsed)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err = fmt.Errorf("newsapi: unexpected status %d", resp.StatusCode)
		if decodeErr == nil && parsed.Message != "" {
			err = fmt.Errorf("newsapi: status %d: %s: %s", resp.StatusCode, parsed.Code, parsed.Message)
		}
		metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, err)
		return nil, err
	}
	if decodeErr != nil {
		metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, decodeErr)
		return nil, fmt.Errorf("newsapi: decode response: %w", decodeErr)
	}
	if parsed.Status == "error" {
		err = fmt.Errorf("newsapi: %s: %s", parsed.Code, parsed.Message)
		metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, err)
		return nil, err
	}
	metrics.ObserveNetworkRequest("newsapi", "everything", q.Language, start, nil)

	items := make([]domain.RawItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		title := strings.TrimSpace(a.Title)
		// newsapi отдаёт удалённые статьи заглушкой
		if title == "" || title == "[Removed]" {
			continue
		}
		item := domain.RawItem{
			Title:       title,
			Description: strings.TrimSpace(a.Description),
			URL:         strings.TrimSpace(a.URL),
			Source:      strings.TrimSpace(a.Source.Name),
		}
		if ts := strings.TrimSpace(a.PublishedAt); ts != "" {
			if parsedTS, err := dateparse.ParseAny(ts); err == nil {
				utc := parsedTS.UTC()
				item.PublishedAt = &utc
			}
		}
		items = append(items, item)
	}
	return items, nil
}

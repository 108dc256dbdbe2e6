package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"aegis-intel/internal/domain"
)

// QueryProfile переопределяет параметры поиска из YAML-файла.
type QueryProfile struct {
	Query    string   `yaml:"query"`
	Terms    []string `yaml:"terms"`
	Language string   `yaml:"language"`
	SortBy   string   `yaml:"sort_by"`
	PageSize int      `yaml:"page_size"`
}

// LoadProfile читает профиль запроса. Пустой путь означает отсутствие профиля.
func LoadProfile(path string) (QueryProfile, error) {
	if strings.TrimSpace(path) == "" {
		return QueryProfile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return QueryProfile{}, fmt.Errorf("чтение профиля запроса: %w", err)
	}
	var p QueryProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return QueryProfile{}, fmt.Errorf("разбор профиля запроса: %w", err)
	}
	return p, nil
}

// NewsQuery собирает параметры поиска из окружения и профиля.
func (c AppConfig) NewsQuery(p QueryProfile) domain.NewsQuery {
	q := domain.NewsQuery{
		Text:     c.News.Query,
		Language: c.News.Language,
		SortBy:   c.News.SortBy,
		PageSize: c.News.PageSize,
	}
	switch {
	case strings.TrimSpace(p.Query) != "":
		q.Text = strings.TrimSpace(p.Query)
	case len(p.Terms) > 0:
		q.Text = joinTerms(p.Terms)
	}
	if p.Language != "" {
		q.Language = p.Language
	}
	if p.SortBy != "" {
		q.SortBy = p.SortBy
	}
	if p.PageSize > 0 {
		q.PageSize = p.PageSize
	}
	return q
}

func joinTerms(terms []string) string {
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(t, " ") {
			t = `"` + t + `"`
		}
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return ""
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

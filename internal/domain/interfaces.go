package domain

import (
	"context"
	"time"
)

// NewsQuery задаёт параметры поиска новостей.
type NewsQuery struct {
	Text     string
	Language string
	SortBy   string
	PageSize int
}

// NewsSource загружает свежие статьи из внешнего API.
type NewsSource interface {
	Fetch(ctx context.Context, q NewsQuery) ([]RawItem, error)
}

// Classifier размечает пачку заголовков.
type Classifier interface {
	Classify(ctx context.Context, items []RawItem) ([]Annotation, error)
}

// SnapshotStore сохраняет и восстанавливает содержимое кэша.
type SnapshotStore interface {
	Load(ctx context.Context) ([]IntelRecord, error)
	Save(ctx context.Context, records []IntelRecord) error
}

// Notifier доставляет критические записи во внешние каналы.
type Notifier interface {
	Notify(ctx context.Context, records []IntelRecord) error
}

// Clock возвращает текущее время; подменяется в тестах.
type Clock func() time.Time

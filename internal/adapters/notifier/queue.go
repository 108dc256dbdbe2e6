package notifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aegis-intel/internal/domain"
)

type publisher interface {
	Publish(ctx context.Context, messages ...any) error
}

// AlertMessage — сообщение об угрозе для внешних потребителей очереди.
type AlertMessage struct {
	ID     string             `json:"id"`
	SentAt time.Time          `json:"sent_at"`
	Record domain.IntelRecord `json:"record"`
}

// Queue публикует каждую запись отдельным сообщением.
type Queue struct {
	name string
	pub  publisher
	now  domain.Clock
}

// NewQueue оборачивает Redis-список или очередь RabbitMQ.
func NewQueue(name string, pub publisher) *Queue {
	return &Queue{name: name, pub: pub, now: time.Now}
}

// Name возвращает имя канала доставки.
func (q *Queue) Name() string { return q.name }

// Notify публикует записи одной пачкой.
func (q *Queue) Notify(ctx context.Context, records []domain.IntelRecord) error {
	if len(records) == 0 {
		return nil
	}
	sentAt := q.now().UTC()
	messages := make([]any, 0, len(records))
	for _, rec := range records {
		messages = append(messages, AlertMessage{ID: uuid.NewString(), SentAt: sentAt, Record: rec})
	}
	if err := q.pub.Publish(ctx, messages...); err != nil {
		return fmt.Errorf("%s: publish: %w", q.name, err)
	}
	return nil
}

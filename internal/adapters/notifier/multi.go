package notifier

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
)

// Sink — именованный канал доставки оповещений.
type Sink interface {
	domain.Notifier
	Name() string
}

// Multi рассылает оповещения во все каналы; ошибки объединяются.
type Multi struct {
	sinks []Sink
	log   zerolog.Logger
}

var _ domain.Notifier = (*Multi)(nil)

// NewMulti создаёт рассылку. Без каналов Notify ничего не делает.
func NewMulti(log zerolog.Logger, sinks ...Sink) *Multi {
	return &Multi{sinks: sinks, log: log}
}

// Len возвращает число каналов.
func (m *Multi) Len() int { return len(m.sinks) }

// Notify доставляет записи во все каналы, даже если часть из них недоступна.
func (m *Multi) Notify(ctx context.Context, records []domain.IntelRecord) error {
	if len(records) == 0 {
		return nil
	}
	var errs []error
	for _, sink := range m.sinks {
		err := sink.Notify(ctx, records)
		metrics.ObserveAlert(sink.Name(), err)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		m.log.Info().Str("sink", sink.Name()).Int("records", len(records)).Msg("notifier: оповещение отправлено")
	}
	return errors.Join(errs...)
}

package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrInvalidTimezone возвращается, если указан некорректный часовой пояс.
var ErrInvalidTimezone = errors.New("invalid timezone")

// ErrEmptySchedule возвращается для пустого расписания.
var ErrEmptySchedule = errors.New("empty schedule")

// Job — периодическая задача; получает контекст планировщика.
type Job func(ctx context.Context)

// Service запускает задачу по cron-расписанию.
type Service struct {
	cron     *cron.Cron
	location *time.Location
	log      zerolog.Logger
}

// NewService разбирает расписание (cron-выражение или @every 15m) и часовой пояс.
// Запуски, пришедшиеся на ещё не завершённую задачу, пропускаются.
func NewService(ctx context.Context, spec, timezone string, job Job, log zerolog.Logger) (*Service, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil, ErrEmptySchedule
	}
	if job == nil {
		return nil, errors.New("job must not be nil")
	}
	tz := "UTC"
	if strings.TrimSpace(timezone) != "" {
		normalized, err := normalizeTimezone(timezone)
		if err != nil {
			return nil, err
		}
		tz = normalized
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	return &Service{cron: c, location: loc, log: log}, nil
}

// Start запускает планировщик.
func (s *Service) Start() {
	s.cron.Start()
	if entries := s.cron.Entries(); len(entries) > 0 {
		s.log.Info().Time("next", entries[0].Next).Str("tz", s.location.String()).Msg("schedule: планировщик запущен")
	}
}

// Stop останавливает планировщик и ждёт завершения текущей задачи.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
}

// Next возвращает время следующего запуска после t.
func (s *Service) Next(t time.Time) time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(t.In(s.location))
}

func normalizeTimezone(raw string) (string, error) {
	candidate := strings.TrimSpace(raw)
	if candidate == "" {
		return "", ErrInvalidTimezone
	}
	candidate = strings.ReplaceAll(candidate, " ", "_")
	if _, err := time.LoadLocation(candidate); err == nil {
		return candidate, nil
	}

	lower := strings.ToLower(candidate)
	parts := strings.Split(lower, "/")
	for i, part := range parts {
		segments := strings.Split(part, "_")
		for j, segment := range segments {
			pieces := strings.Split(segment, "-")
			for k, piece := range pieces {
				if piece == "" {
					continue
				}
				pieces[k] = strings.ToUpper(piece[:1]) + piece[1:]
			}
			segments[j] = strings.Join(pieces, "-")
		}
		parts[i] = strings.Join(segments, "_")
	}
	normalized := strings.Join(parts, "/")
	if _, err := time.LoadLocation(normalized); err == nil {
		return normalized, nil
	}
	return "", ErrInvalidTimezone
}

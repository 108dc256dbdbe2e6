package scan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/metrics"
	"aegis-intel/internal/usecase/intel"
)

const (
	// TriggerManual — скан по запросу через API.
	TriggerManual = "manual"
	// TriggerSchedule — скан по расписанию.
	TriggerSchedule = "schedule"
	// TriggerStartup — скан при старте процесса.
	TriggerStartup = "startup"

	// DefaultAlertThreshold — минимальная угроза для оповещения.
	DefaultAlertThreshold = 8
)

const (
	outcomeOK       = "ok"
	outcomeFallback = "fallback"
	outcomeEmpty    = "empty"
)

const (
	noticeSourceDown = "новостной источник недоступен"
	noticeSourceIdle = "новостной источник не вернул статей"
	noticeClassifier = "анализ недоступен, показана необработанная лента"
	noticeNoIntel    = "классификатор не нашёл релевантных статей, показана необработанная лента"
)

// Report описывает результат одного сканирования.
type Report struct {
	ID          string        `json:"id"`
	Trigger     string        `json:"trigger"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"-"`
	DurationMS  int64         `json:"duration_ms"`
	Fetched     int           `json:"fetched"`
	Annotated   int           `json:"annotated"`
	Added       int           `json:"added"`
	Dropped     int           `json:"dropped"`
	Rejected    int           `json:"rejected"`
	Evicted     int           `json:"evicted"`
	Active      int           `json:"active"`
	Alerted     int           `json:"alerted"`
	RawFallback bool          `json:"raw_fallback"`
	Notices     []string      `json:"notices,omitempty"`
}

type intelCache interface {
	Ingest(ctx context.Context, candidates []domain.IntelRecord) intel.IngestResult
	ListActive() []domain.IntelRecord
}

// Service выполняет цикл fetch → classify → merge → ingest.
type Service struct {
	mu         sync.Mutex
	source     domain.NewsSource
	classifier domain.Classifier
	cache      intelCache
	notifier   domain.Notifier
	query      domain.NewsQuery
	threshold  int
	log        zerolog.Logger

	stateMu sync.RWMutex
	raw     []domain.RawItem
	last    *Report
}

// Option настраивает сервис.
type Option func(*Service)

// WithNotifier подключает оповещения о критических записях.
func WithNotifier(n domain.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithAlertThreshold задаёт минимальную угрозу для оповещения.
func WithAlertThreshold(threshold int) Option {
	return func(s *Service) {
		if threshold > 0 {
			s.threshold = threshold
		}
	}
}

// WithLogger задаёт логгер.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.log = logger }
}

// NewService создаёт сервис сканирования.
func NewService(source domain.NewsSource, classifier domain.Classifier, cache intelCache, query domain.NewsQuery, opts ...Option) *Service {
	s := &Service{
		source:     source,
		classifier: classifier,
		cache:      cache,
		query:      query,
		threshold:  DefaultAlertThreshold,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run выполняет одно сканирование. Сканирования выполняются строго по очереди.
// Сбои источника и классификатора не возвращаются, а попадают в Notices.
func (s *Service) Run(ctx context.Context, trigger string) Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	report := Report{ID: uuid.NewString(), Trigger: trigger, StartedAt: start.UTC()}
	logger := s.log.With().Str("scan_id", report.ID).Str("trigger", trigger).Logger()
	outcome := outcomeOK

	items, err := s.source.Fetch(ctx, s.query)
	if err != nil {
		logger.Warn().Err(err).Msg("scan: источник недоступен")
		report.Notices = append(report.Notices, noticeSourceDown)
		items = nil
	}
	report.Fetched = len(items)

	var records []domain.IntelRecord
	if len(items) > 0 {
		anns, err := s.classifier.Classify(ctx, items)
		if err != nil {
			logger.Warn().Err(err).Msg("scan: классификатор недоступен")
			report.Notices = append(report.Notices, noticeClassifier)
			anns = nil
		}
		report.Annotated = len(anns)
		records = mergeAll(items, anns)
		if len(records) == 0 && err == nil {
			report.Notices = append(report.Notices, noticeNoIntel)
		}
	} else if err == nil {
		report.Notices = append(report.Notices, noticeSourceIdle)
	}

	res := s.cache.Ingest(ctx, records)
	report.Added = len(res.Added)
	report.Dropped = res.Dropped
	report.Rejected = res.Rejected
	report.Evicted = res.Evicted
	report.Active = res.Active

	switch {
	case len(items) > 0 && len(records) == 0:
		report.RawFallback = true
		outcome = outcomeFallback
		s.setRaw(items)
	case len(items) == 0:
		outcome = outcomeEmpty
		s.setRaw(nil)
	default:
		s.setRaw(nil)
	}

	report.Alerted = s.alert(ctx, logger, res.Added)

	report.Duration = time.Since(start)
	report.DurationMS = report.Duration.Milliseconds()
	metrics.ObserveScan(trigger, outcome, start)
	logger.Info().
		Int("fetched", report.Fetched).
		Int("annotated", report.Annotated).
		Int("added", report.Added).
		Int("active", report.Active).
		Bool("raw_fallback", report.RawFallback).
		Dur("duration", report.Duration).
		Msg("scan: завершено")

	s.stateMu.Lock()
	last := report
	s.last = &last
	s.stateMu.Unlock()
	return report
}

// RawItems возвращает необработанную ленту последнего сканирования без разметки.
func (s *Service) RawItems() []domain.RawItem {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	out := make([]domain.RawItem, len(s.raw))
	copy(out, s.raw)
	return out
}

// LastReport возвращает отчёт последнего сканирования.
func (s *Service) LastReport() (Report, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.last == nil {
		return Report{}, false
	}
	return *s.last, true
}

// Active возвращает записи кэша.
func (s *Service) Active() []domain.IntelRecord {
	return s.cache.ListActive()
}

func (s *Service) setRaw(items []domain.RawItem) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.raw = append([]domain.RawItem(nil), items...)
}

func (s *Service) alert(ctx context.Context, logger zerolog.Logger, added []domain.IntelRecord) int {
	if s.notifier == nil {
		return 0
	}
	var hot []domain.IntelRecord
	for _, rec := range added {
		if rec.Threat >= s.threshold {
			hot = append(hot, rec)
		}
	}
	if len(hot) == 0 {
		return 0
	}
	if err := s.notifier.Notify(ctx, hot); err != nil {
		logger.Warn().Err(err).Int("records", len(hot)).Msg("scan: оповещение не доставлено")
	}
	return len(hot)
}

func mergeAll(items []domain.RawItem, anns []domain.Annotation) []domain.IntelRecord {
	records := make([]domain.IntelRecord, 0, len(anns))
	for _, ann := range anns {
		if ann.Index < 0 || ann.Index >= len(items) || !ann.Relevant {
			continue
		}
		records = append(records, domain.Merge(items[ann.Index], ann))
	}
	return records
}

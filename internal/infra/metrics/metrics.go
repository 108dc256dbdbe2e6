package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	IntelActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "intel_records_active",
		Help: "Количество записей в 24-часовом окне",
	})
	IntelIngested = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intel_records_ingested_total",
		Help: "Добавленные в кэш записи",
	})
	IntelEvicted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intel_records_evicted_total",
		Help: "Записи, вытесненные по возрасту",
	})
	IntelRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intel_records_rejected_total",
		Help: "Отброшенные кандидаты",
	}, []string{"reason"})
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intel_store_errors_total",
		Help: "Ошибки сохранения и загрузки снимка",
	}, []string{"operation"})
	ScanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scan_duration_seconds",
		Help:    "Длительность сканирования",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
	}, []string{"trigger", "outcome"})
	AlertsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_sent_total",
		Help: "Отправленные оповещения о критических записях",
	}, []string{"sink", "status"})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 15, 20, 30, 45, 60, 90, 120},
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		IntelActive,
		IntelIngested,
		IntelEvicted,
		IntelRejected,
		StoreErrors,
		ScanDuration,
		AlertsSent,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartServer запускает отдельный HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	shutdownCtx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-ctx.Done():
		case <-shutdownCtx.Done():
		}
		shutdownTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer timeoutCancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
		cancel()
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveIngest обновляет счётчики кэша после вставки.
func ObserveIngest(active, added, evicted, rejected int) {
	IntelActive.Set(float64(active))
	if added > 0 {
		IntelIngested.Add(float64(added))
	}
	if evicted > 0 {
		IntelEvicted.Add(float64(evicted))
	}
	if rejected > 0 {
		IntelRejected.WithLabelValues("missing_url").Add(float64(rejected))
	}
}

// ObserveScan записывает длительность сканирования.
func ObserveScan(trigger, outcome string, start time.Time) {
	ScanDuration.WithLabelValues(trigger, outcome).Observe(time.Since(start).Seconds())
}

// ObserveAlert учитывает попытку отправки оповещения.
func ObserveAlert(sink string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AlertsSent.WithLabelValues(sink, status).Inc()
}

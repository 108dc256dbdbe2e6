package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"aegis-intel/internal/adapters/classifier"
	"aegis-intel/internal/adapters/newsapi"
	"aegis-intel/internal/adapters/notifier"
	"aegis-intel/internal/adapters/store"
	"aegis-intel/internal/adapters/web"
	"aegis-intel/internal/domain"
	"aegis-intel/internal/infra/cache"
	"aegis-intel/internal/infra/config"
	"aegis-intel/internal/infra/db"
	httpinfra "aegis-intel/internal/infra/http"
	applog "aegis-intel/internal/infra/log"
	"aegis-intel/internal/infra/metrics"
	openai "aegis-intel/internal/infra/openai"
	"aegis-intel/internal/infra/queue"
	"aegis-intel/internal/usecase/intel"
	"aegis-intel/internal/usecase/scan"
	"aegis-intel/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("aegis: некорректная конфигурация")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client, err := cache.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Fatal().Err(err).Msg("aegis: нет подключения к Redis")
		}
		defer client.Close()
		redisClient = client
	}

	var pool *pgxpool.Pool
	if cfg.Store.Driver == "postgres" {
		p, err := db.Connect(ctx, cfg.PGDSN)
		if err != nil {
			logger.Fatal().Err(err).Msg("aegis: нет подключения к БД")
		}
		defer p.Close()
		pool = p
	}

	snapshots, err := newSnapshotStore(ctx, cfg, redisClient, pool)
	if err != nil {
		logger.Fatal().Err(err).Msg("aegis: хранилище снимков недоступно")
	}

	cacheOpts := []intel.Option{
		intel.WithRetention(cfg.Store.Retention),
		intel.WithLogger(applog.Component(logger, "intel")),
	}
	if snapshots != nil {
		cacheOpts = append(cacheOpts, intel.WithStore(snapshots))
	}
	intelCache := intel.NewCache(cacheOpts...)
	intelCache.Load(ctx)

	var source domain.NewsSource = newsapi.NewClient(cfg.News.APIKey, cfg.News.BaseURL, cfg.News.Timeout)
	if cfg.News.CacheTTL > 0 && redisClient != nil {
		source = newsapi.NewCached(source, cache.NewRedis(redisClient, "aegis:"), cfg.News.CacheTTL, applog.Component(logger, "newsapi"))
	}

	profile, err := config.LoadProfile(cfg.News.ProfilePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("aegis: профиль запроса не прочитан")
	}

	llm := openai.NewClient(cfg.LLMKey(), cfg.LLM.BaseURL, cfg.LLM.Timeout)
	cls := classifier.NewLLM(llm, cfg.LLM.Model, cfg.LLM.Timeout, applog.Component(logger, "classifier"))

	alerts, closeAlerts := newNotifier(cfg, redisClient, logger)
	defer closeAlerts()

	svc := scan.NewService(source, cls, intelCache, cfg.NewsQuery(profile),
		scan.WithNotifier(alerts),
		scan.WithAlertThreshold(cfg.Alerts.Threshold),
		scan.WithLogger(applog.Component(logger, "scan")),
	)

	if cfg.Scan.Schedule != "" {
		scheduler, err := schedule.NewService(ctx, cfg.Scan.Schedule, cfg.Scan.Timezone, func(ctx context.Context) {
			svc.Run(ctx, scan.TriggerSchedule)
		}, applog.Component(logger, "schedule"))
		if err != nil {
			logger.Fatal().Err(err).Msg("aegis: некорректное расписание SCAN_SCHEDULE")
		}
		scheduler.Start()
		defer scheduler.Stop()
	}
	if cfg.Scan.OnStartup {
		go svc.Run(ctx, scan.TriggerStartup)
	}

	if cfg.MetricsAddr != "" {
		metrics.StartServer(ctx, applog.Component(logger, "metrics"), cfg.MetricsAddr)
	}

	requestTimeout := cfg.LLM.Timeout + cfg.News.Timeout + 10*time.Second
	server := httpinfra.NewServer(applog.Component(logger, "http"), requestTimeout)
	web.NewHandler(svc, applog.Component(logger, "web")).Mount(server.Router)

	if err := server.Run(ctx, fmt.Sprintf(":%d", cfg.Port), requestTimeout+5*time.Second); err != nil {
		logger.Fatal().Err(err).Msg("aegis: http сервер остановился")
	}
}

func newSnapshotStore(ctx context.Context, cfg config.AppConfig, redisClient *redis.Client, pool *pgxpool.Pool) (domain.SnapshotStore, error) {
	switch cfg.Store.Driver {
	case "file":
		return store.NewFile(cfg.Store.FilePath), nil
	case "redis":
		return store.NewRedis(redisClient, cfg.Store.RedisKey, cfg.Store.Retention), nil
	case "postgres":
		pg, err := store.NewPostgres(ctx, pool)
		if err != nil {
			return nil, err
		}
		return pg, nil
	default:
		return nil, nil
	}
}

func newNotifier(cfg config.AppConfig, redisClient *redis.Client, logger zerolog.Logger) (*notifier.Multi, func()) {
	var sinks []notifier.Sink
	closers := []func(){}

	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Error().Err(err).Msg("aegis: telegram недоступен, оповещения в чат отключены")
		} else {
			sinks = append(sinks, notifier.NewTelegram(bot, cfg.Telegram.ChatID))
		}
	}
	if cfg.Alerts.RedisList != "" && redisClient != nil {
		sinks = append(sinks, notifier.NewQueue("redis", queue.NewRedisList(redisClient, cfg.Alerts.RedisList)))
	}
	if cfg.Rabbit.URL != "" {
		pub, err := queue.NewRabbitPublisher(cfg.Rabbit.URL, cfg.Rabbit.Queue)
		if err != nil {
			logger.Error().Err(err).Msg("aegis: rabbitmq недоступен, оповещения в очередь отключены")
		} else {
			sinks = append(sinks, notifier.NewQueue("rabbitmq", pub))
			closers = append(closers, func() { _ = pub.Close() })
		}
	}
	alerts := notifier.NewMulti(applog.Component(logger, "notifier"), sinks...)
	logger.Info().Int("sinks", alerts.Len()).Msg("aegis: каналы оповещений настроены")
	return alerts, func() {
		for _, c := range closers {
			c()
		}
	}
}

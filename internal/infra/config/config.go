package config

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервиса.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	News struct {
		APIKey      string        `envconfig:"NEWS_API_KEY"`
		BaseURL     string        `envconfig:"NEWS_BASE_URL" default:"https://newsapi.org/v2"`
		Query       string        `envconfig:"NEWS_QUERY" default:"(military OR war OR missile OR conflict)"`
		Language    string        `envconfig:"NEWS_LANGUAGE" default:"en"`
		SortBy      string        `envconfig:"NEWS_SORT_BY" default:"publishedAt"`
		PageSize    int           `envconfig:"NEWS_PAGE_SIZE" default:"15"`
		Timeout     time.Duration `envconfig:"NEWS_TIMEOUT" default:"20s"`
		CacheTTL    time.Duration `envconfig:"NEWS_CACHE_TTL" default:"0s"`
		ProfilePath string        `envconfig:"NEWS_PROFILE_PATH"`
	} `envconfig:""`

	LLM struct {
		APIKey       string        `envconfig:"LLM_API_KEY"`
		GeminiAPIKey string        `envconfig:"GEMINI_API_KEY"`
		BaseURL      string        `envconfig:"LLM_BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta/openai"`
		Model        string        `envconfig:"LLM_MODEL" default:"gemini-1.5-flash"`
		Timeout      time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Store struct {
		Driver    string        `envconfig:"STORE_DRIVER" default:"memory"`
		FilePath  string        `envconfig:"STORE_FILE_PATH" default:"intel_memory.json"`
		RedisKey  string        `envconfig:"STORE_REDIS_KEY" default:"aegis:intel:snapshot"`
		Retention time.Duration `envconfig:"INTEL_RETENTION" default:"24h"`
	} `envconfig:""`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_ALERT_CHAT_ID"`
	} `envconfig:""`

	Rabbit struct {
		URL   string `envconfig:"RABBITMQ_URL"`
		Queue string `envconfig:"RABBITMQ_ALERT_QUEUE" default:"intel_alerts"`
	} `envconfig:""`

	Alerts struct {
		Threshold int    `envconfig:"ALERT_THRESHOLD" default:"8"`
		RedisList string `envconfig:"ALERT_REDIS_LIST"`
	} `envconfig:""`

	Scan struct {
		Schedule  string `envconfig:"SCAN_SCHEDULE"`
		Timezone  string `envconfig:"SCAN_TIMEZONE" default:"UTC"`
		OnStartup bool   `envconfig:"SCAN_ON_STARTUP" default:"false"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// LLMKey возвращает ключ LLM, GEMINI_API_KEY используется как запасной вариант.
func (c AppConfig) LLMKey() string {
	if key := strings.TrimSpace(c.LLM.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(c.LLM.GeminiAPIKey)
}

// Validate проверяет наличие обязательных ключей и корректность драйвера хранилища.
func (c AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.News.APIKey) == "" {
		errs = append(errs, errors.New("не указан ключ новостного API (NEWS_API_KEY)"))
	}
	if c.LLMKey() == "" {
		errs = append(errs, errors.New("не указан ключ LLM (LLM_API_KEY или GEMINI_API_KEY)"))
	}
	switch c.Store.Driver {
	case "memory", "file":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("STORE_DRIVER=redis требует REDIS_ADDR"))
		}
	case "postgres":
		if c.PGDSN == "" {
			errs = append(errs, errors.New("STORE_DRIVER=postgres требует PG_DSN"))
		}
	default:
		errs = append(errs, errors.New("неизвестный STORE_DRIVER: "+c.Store.Driver))
	}
	if c.Store.Retention <= 0 {
		errs = append(errs, errors.New("INTEL_RETENTION должен быть положительным"))
	}
	return errors.Join(errs...)
}

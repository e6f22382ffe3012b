package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string

	CampingCareBase string
	CampingCareKey  string
	CampingCareRPS  int

	// inbound webhooks
	WebhookSecret    string
	WebhookPublicURL string
	WebhookNodeID    string
	EventsChannel    string

	// Google Sheets (OAuth2)
	SheetsBaseURL      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleAccessToken  string

	OptionsCacheTTL time.Duration
	ImportWorkers   int
	HTTPTimeout     time.Duration
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/campingcare?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisPass:   env("REDIS_PASSWORD", ""),
		RedisDB:     atoi("REDIS_DB", 0),

		CampingCareBase: strings.TrimRight(env("CAMPINGCARE_BASE_URL", "https://api.camping.care/v21"), "/"),
		CampingCareKey:  env("CAMPINGCARE_API_KEY", ""),
		CampingCareRPS:  atoi("CAMPINGCARE_RPS", 5),

		WebhookSecret:    env("WEBHOOK_SECRET", ""),
		WebhookPublicURL: env("WEBHOOK_PUBLIC_URL", ""),
		WebhookNodeID:    env("WEBHOOK_NODE_ID", "campingcare"),
		EventsChannel:    env("WEBHOOK_EVENTS_CHANNEL", "campingcare:events"),

		SheetsBaseURL:      env("SHEETS_BASE_URL", ""),
		GoogleClientID:     env("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: env("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: env("GOOGLE_REFRESH_TOKEN", ""),
		GoogleAccessToken:  env("GOOGLE_ACCESS_TOKEN", ""),

		OptionsCacheTTL: time.Duration(atoi("OPTIONS_CACHE_TTL_SECONDS", 300)) * time.Second,
		ImportWorkers:   atoi("IMPORT_WORKERS", 4),
		HTTPTimeout:     time.Duration(atoi("HTTP_TIMEOUT_SECONDS", 20)) * time.Second,
	}
	if c.CampingCareKey == "" {
		log.Warn().Msg("CAMPINGCARE_API_KEY is empty")
	}
	if c.GoogleRefreshToken == "" && c.GoogleAccessToken == "" {
		log.Warn().Msg("no Google credentials set; sheet operations will fail")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

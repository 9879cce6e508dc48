package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the engine.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Engine   EngineConfig
	Channels ChannelConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the shared secret used to verify operator tokens issued by
// the external auth service.
type AuthConfig struct {
	JWTSecret string
}

// EngineConfig tunes the notification/SLA/escalation engine.
type EngineConfig struct {
	ScanCronSpec              string
	DispatchTimeoutSeconds    int
	EventQueueCapacity        int
	CriticalMargin            float64
	EscalationIntervalMinutes int
	EscalationMaxLevel        int
}

// ChannelConfig holds delivery channel endpoints and credentials.
type ChannelConfig struct {
	EmailSMTPHost     string
	EmailSMTPPort     int
	EmailFrom         string
	EmailSMTPUser     string
	EmailSMTPPassword string
	SlackWebhookURL   string
	TeamsWebhookURL   string
	WebhookURL        string
	RealtimePrefix    string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	criticalMargin, err := strconv.ParseFloat(getEnv("SLA_CRITICAL_MARGIN", "1.5"), 64)
	if err != nil || criticalMargin < 1 {
		return nil, fmt.Errorf("invalid SLA_CRITICAL_MARGIN")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "notification-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Engine: EngineConfig{
			ScanCronSpec:              getEnv("SLA_SCAN_CRON", "@every 1m"),
			DispatchTimeoutSeconds:    getEnvAsInt("DISPATCH_TIMEOUT_SECONDS", 10),
			EventQueueCapacity:        getEnvAsInt("EVENT_QUEUE_CAPACITY", 256),
			CriticalMargin:            criticalMargin,
			EscalationIntervalMinutes: getEnvAsInt("ESCALATION_INTERVAL_MINUTES", 60),
			EscalationMaxLevel:        getEnvAsInt("ESCALATION_MAX_LEVEL", 3),
		},
		Channels: ChannelConfig{
			EmailSMTPHost:     getEnv("NOTIFY_SMTP_HOST", ""),
			EmailSMTPPort:     getEnvAsInt("NOTIFY_SMTP_PORT", 587),
			EmailFrom:         getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			EmailSMTPUser:     os.Getenv("NOTIFY_SMTP_USER"),
			EmailSMTPPassword: os.Getenv("NOTIFY_SMTP_PASSWORD"),
			SlackWebhookURL:   getEnv("NOTIFY_SLACK_WEBHOOK_URL", ""),
			TeamsWebhookURL:   getEnv("NOTIFY_TEAMS_WEBHOOK_URL", ""),
			WebhookURL:        getEnv("NOTIFY_WEBHOOK_URL", ""),
			RealtimePrefix:    getEnv("NOTIFY_REALTIME_PREFIX", "notify:user:"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// DispatchTimeout returns the per-channel send timeout.
func (e EngineConfig) DispatchTimeout() time.Duration {
	if e.DispatchTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(e.DispatchTimeoutSeconds) * time.Second
}

// EscalationInterval returns the level re-escalation interval.
func (e EngineConfig) EscalationInterval() time.Duration {
	if e.EscalationIntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(e.EscalationIntervalMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

// internal/infrastructure/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"killua-service-provider/internal/domain/entity"

	"github.com/joho/godotenv"
)

// Expired notice policies
const (
	ExpiredNoticeRepeat = "repeat"
	ExpiredNoticeOnce   = "once"
)

// Config holds all configuration for the application
type Config struct {
	// App
	AppVersion       string
	LogLevel         string
	MetricsNamespace string
	Location         *time.Location
	timezoneSetting  string

	// Server
	Port           string
	GinMode        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration

	// PostgreSQL
	PostgresURI    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnLifetime time.Duration
	DBAutoMigrate  bool

	// MongoDB
	MongoURI      string
	MongoDB       string
	MongoUser     string
	MongoPassword string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Expiry
	ExpiredNoticePolicy string
	ExpiredNoticeTTL    time.Duration
	ExpiryScanInterval  time.Duration

	// Dispatch
	DispatchInterval    time.Duration
	DispatchBatchSize   int
	DispatchMaxAttempts int

	// RabbitMQ
	RabbitMQURL      string
	RabbitMQExchange string
	RabbitMQEvents   []string

	// Webhook
	WebhookURL    string
	WebhookToken  string
	WebhookEvents []string

	// Gmail
	GmailClientID     string
	GmailClientSecret string
	GmailRefreshToken string
	NotifyEmailFrom   string
	NotifyEmailTo     []string
	NotifyEmailEvents []string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		AppVersion:       getEnv("APP_VERSION", "1.0.0"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "killua"),
		timezoneSetting:  getEnv("TIMEZONE", "UTC"),

		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "release"),
		ReadTimeout:    time.Duration(getEnvAsInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout:   time.Duration(getEnvAsInt("WRITE_TIMEOUT", 30)) * time.Second,
		RequestTimeout: time.Duration(getEnvAsInt("REQUEST_TIMEOUT", 15)) * time.Second,

		PostgresURI:    getEnv("POSTGRES_DSN", ""),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		DBAutoMigrate:  getEnvAsBool("DB_AUTO_MIGRATE", true),

		MongoURI:      getEnv("MONGODB_DSN", ""),
		MongoDB:       getEnv("MONGO_DB", "killua"),
		MongoUser:     getEnv("MONGO_USER", ""),
		MongoPassword: getEnv("MONGO_PASSWORD", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		ExpiredNoticePolicy: strings.ToLower(getEnv("EXPIRED_NOTICE_POLICY", ExpiredNoticeRepeat)),
		ExpiredNoticeTTL:    getEnvAsDuration("EXPIRED_NOTICE_TTL", 30*24*time.Hour),
		ExpiryScanInterval:  getEnvAsDuration("EXPIRY_SCAN_INTERVAL", 0),

		DispatchInterval:    getEnvAsDuration("DISPATCH_INTERVAL", 30*time.Second),
		DispatchBatchSize:   getEnvAsInt("DISPATCH_BATCH_SIZE", 100),
		DispatchMaxAttempts: getEnvAsInt("DISPATCH_MAX_ATTEMPTS", 5),

		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "service.events"),
		RabbitMQEvents:   getEnvAsList("RABBITMQ_EVENTS"),

		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookToken:  getEnv("WEBHOOK_TOKEN", ""),
		WebhookEvents: getEnvAsList("WEBHOOK_EVENTS"),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
		NotifyEmailFrom:   getEnv("NOTIFY_EMAIL_FROM", "me"),
		NotifyEmailTo:     getEnvAsList("NOTIFY_EMAIL_TO"),
		NotifyEmailEvents: getEnvAsList("NOTIFY_EMAIL_EVENTS"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks required settings and loads the timezone
func (c *Config) Validate() error {
	var errs []error

	if c.PostgresURI == "" {
		errs = append(errs, errors.New("POSTGRES_DSN is required"))
	}

	switch c.ExpiredNoticePolicy {
	case ExpiredNoticeRepeat:
	case ExpiredNoticeOnce:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("EXPIRED_NOTICE_POLICY=once requires REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EXPIRED_NOTICE_POLICY %q", c.ExpiredNoticePolicy))
	}

	if c.ExpiryScanInterval > 0 && c.ExpiredNoticePolicy != ExpiredNoticeOnce {
		errs = append(errs, errors.New("EXPIRY_SCAN_INTERVAL requires EXPIRED_NOTICE_POLICY=once"))
	}

	gmailSet := 0
	for _, v := range []string{c.GmailClientID, c.GmailClientSecret, c.GmailRefreshToken} {
		if v != "" {
			gmailSet++
		}
	}
	if gmailSet != 0 && gmailSet != 3 {
		errs = append(errs, errors.New("GMAIL_CLIENT_ID, GMAIL_CLIENT_SECRET and GMAIL_REFRESH_TOKEN must be set together"))
	}
	if gmailSet == 3 && len(c.NotifyEmailTo) == 0 {
		errs = append(errs, errors.New("NOTIFY_EMAIL_TO is required when Gmail is configured"))
	}

	for name, events := range map[string][]string{
		"RABBITMQ_EVENTS":     c.RabbitMQEvents,
		"WEBHOOK_EVENTS":      c.WebhookEvents,
		"NOTIFY_EMAIL_EVENTS": c.NotifyEmailEvents,
	} {
		for _, e := range events {
			if !entity.EventType(strings.ToLower(e)).IsValid() {
				errs = append(errs, fmt.Errorf("%s: unknown event type %q", name, e))
			}
		}
	}

	if c.DispatchBatchSize <= 0 {
		errs = append(errs, errors.New("DISPATCH_BATCH_SIZE must be positive"))
	}
	if c.DispatchMaxAttempts <= 0 {
		errs = append(errs, errors.New("DISPATCH_MAX_ATTEMPTS must be positive"))
	}

	if c.Location == nil {
		loc, err := time.LoadLocation(c.timezoneSetting)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.timezoneSetting, err))
		} else {
			c.Location = loc
		}
	}

	return errors.Join(errs...)
}

// GmailEnabled reports whether outbound email is configured
func (c *Config) GmailEnabled() bool {
	return c.GmailClientID != "" && c.GmailClientSecret != "" && c.GmailRefreshToken != ""
}

// Helper functions to get environment variables
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s", "5m") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

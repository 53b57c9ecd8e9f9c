package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendFirestore = "firestore"
	StoreBackendPostgres  = "postgres"
	StoreBackendMemory    = "memory" // in-process, empty on every start; for local dry runs
)

// AppConfig holds all configuration for the reminder job and the aggregate consumer.
type AppConfig struct {
	LogLevel    string
	Environment string

	StoreBackend      string // firestore, postgres or memory
	FirebaseCredsPath string // service-account JSON; empty means application default credentials
	FirebaseProjectID string
	DatabaseURL       string // required for the postgres backend
	MemorySeedFile    string // optional JSON users/meals for the memory backend

	ReminderCronSpec string // empty means run once and exit
	ReminderTimeout  time.Duration
	ReminderLocation *time.Location // defines "today" for the reminder job

	KafkaBrokers   []string
	MealEventTopic string
	KafkaGroupID   string
	MetricsAddress string

	OpsTelegramToken  string // optional, run reports are posted when set together with OpsTelegramChatID
	OpsTelegramChatID int64
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.StoreBackend = strings.ToLower(os.Getenv("STORE_BACKEND"))
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = StoreBackendFirestore
	}
	switch cfg.StoreBackend {
	case StoreBackendFirestore, StoreBackendMemory:
	case StoreBackendPostgres:
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set (required for STORE_BACKEND=postgres)")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be %q, %q or %q", cfg.StoreBackend, StoreBackendFirestore, StoreBackendPostgres, StoreBackendMemory)
	}

	cfg.FirebaseCredsPath = os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if cfg.FirebaseCredsPath == "" {
		cfg.FirebaseCredsPath = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	cfg.FirebaseProjectID = os.Getenv("FIREBASE_PROJECT_ID")
	cfg.MemorySeedFile = os.Getenv("MEMORY_SEED_FILE")

	cfg.ReminderCronSpec = os.Getenv("REMINDER_CRON_SPEC")

	cfg.ReminderTimeout = 5 * time.Minute
	if v := os.Getenv("REMINDER_TIMEOUT"); v != "" {
		cfg.ReminderTimeout, err = time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_TIMEOUT: %w", err)
		}
	}

	cfg.ReminderLocation = time.Local // server local time, like the cron engine
	if tz := os.Getenv("REMINDER_TIMEZONE"); tz != "" {
		cfg.ReminderLocation, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid REMINDER_TIMEZONE: %w", err)
		}
	}

	cfg.KafkaBrokers = splitAndTrim(getEnvOr("KAFKA_BROKERS", "localhost:9092"))
	cfg.MealEventTopic = getEnvOr("MEAL_EVENTS_TOPIC", "meal-events")
	cfg.KafkaGroupID = getEnvOr("KAFKA_GROUP_ID", "bitewise-aggregator")
	cfg.MetricsAddress = getEnvOr("METRICS_ADDRESS", ":9090")

	cfg.OpsTelegramToken = os.Getenv("OPS_TELEGRAM_TOKEN")
	if chatIDStr := os.Getenv("OPS_TELEGRAM_CHAT_ID"); chatIDStr != "" {
		cfg.OpsTelegramChatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_TELEGRAM_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

// OpsReportEnabled reports whether run reports should be posted to Telegram.
func (c *AppConfig) OpsReportEnabled() bool {
	return c.OpsTelegramToken != "" && c.OpsTelegramChatID != 0
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

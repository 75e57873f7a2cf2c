package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	KafkaBrokers        []string
	KafkaTopic          string
	LockBackend         string        // "local" (single instance) or "redis" (shared across instances)
	LockTTL             time.Duration // Redis lock expiry, bounds how long a crashed holder blocks a group
	ReservationRetries  int           // attempts for a critical section that lost a version race
	LogLevel            string
	OTLPEndpoint        string // empty disables span export
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	SupabaseURL         string
	SupabaseSecretKey   string // service_role key, signs proof-of-pickup uploads
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("KAFKA_TOPIC", "foodbridge.events")
	viper.SetDefault("LOCK_BACKEND", LockBackendLocal)
	viper.SetDefault("LOCK_TTL", "10s")
	viper.SetDefault("RESERVATION_RETRIES", 3)
	viper.SetDefault("LOG_LEVEL", "info")

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	lockBackend := strings.ToLower(strings.TrimSpace(viper.GetString("LOCK_BACKEND")))
	if lockBackend != LockBackendRedis {
		lockBackend = LockBackendLocal
	}
	lockTTL := viper.GetDuration("LOCK_TTL")
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	retries := viper.GetInt("RESERVATION_RETRIES")
	if retries <= 0 {
		retries = 3
	}

	return &Config{
		Env:                 env,
		Port:                viper.GetString("PORT"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		KafkaBrokers:        splitList(viper.GetString("KAFKA_BROKERS")),
		KafkaTopic:          viper.GetString("KAFKA_TOPIC"),
		LockBackend:         lockBackend,
		LockTTL:             lockTTL,
		ReservationRetries:  retries,
		LogLevel:            viper.GetString("LOG_LEVEL"),
		OTLPEndpoint:        viper.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		SupabaseURL:         viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:   viper.GetString("SUPABASE_SECRET_KEY"),
	}, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

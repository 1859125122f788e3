package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MigrationsPath  string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type Config struct {
	App struct {
		Port string
		// CommissionRatePercent is the default rate the admin handler passes
		// to settlement when the request does not carry one. It is always an
		// explicit parameter downstream, never read again mid-settlement.
		CommissionRatePercent decimal.Decimal
	}
	Postgres PostgresConfig
	Payment  struct {
		GatewayURL string
		APIKey     string
	}
	Email struct {
		APIURL    string
		APIKey    string
		QueueSize int
	}
	Identity struct {
		BaseURL string
	}
}

// Load reads .env (when present) and the environment. Database settings are
// required; everything else has a default.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("APP_PORT", "8080")

	rate, err := decimal.NewFromString(getEnv("COMMISSION_RATE_PERCENT", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMISSION_RATE_PERCENT: %w", err)
	}
	cfg.App.CommissionRatePercent = rate

	for _, req := range []struct {
		name string
		dst  *string
	}{
		{"DB_HOST", &cfg.Postgres.Host},
		{"DB_PORT", &cfg.Postgres.Port},
		{"DB_USER", &cfg.Postgres.User},
		{"DB_PASSWORD", &cfg.Postgres.Password},
		{"DB_NAME", &cfg.Postgres.DBName},
	} {
		*req.dst = os.Getenv(req.name)
		if *req.dst == "" {
			return nil, fmt.Errorf("%s is required", req.name)
		}
	}
	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")
	cfg.Postgres.MaxConns = int32(getEnvInt("DB_MAX_CONNS", 10))
	cfg.Postgres.MinConns = int32(getEnvInt("DB_MIN_CONNS", 2))
	cfg.Postgres.MaxConnLifetime = time.Duration(getEnvInt("DB_MAX_CONN_LIFETIME_MINUTES", 30)) * time.Minute

	cfg.Payment.GatewayURL = getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9080")
	cfg.Payment.APIKey = os.Getenv("PAYMENT_GATEWAY_API_KEY")

	cfg.Email.APIURL = os.Getenv("EMAIL_API_URL")
	cfg.Email.APIKey = os.Getenv("EMAIL_API_KEY")
	cfg.Email.QueueSize = getEnvInt("EMAIL_QUEUE_SIZE", 256)

	cfg.Identity.BaseURL = getEnv("IDENTITY_SERVICE_URL", "http://localhost:9090")

	return cfg, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL string        `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string        `env:"JWT_SECRET,required,notEmpty"`
	JWTExpiry   time.Duration `env:"JWT_EXPIRY" envDefault:"24h"`
	Port        int           `env:"PORT" envDefault:"8080"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string        `env:"APP_ENV" envDefault:"production"`

	LockTimeout time.Duration `env:"LOCK_TIMEOUT" envDefault:"5s"`
	BankName    string        `env:"BANK_NAME" envDefault:"Ledger Bank"`
	BankIFSC    string        `env:"BANK_IFSC" envDefault:"LDGR0000001"`

	RedisURL           string        `env:"REDIS_URL"`
	TransferRateLimit  int           `env:"TRANSFER_RATE_LIMIT" envDefault:"20"`
	TransferRateWindow time.Duration `env:"TRANSFER_RATE_WINDOW" envDefault:"1m"`

	RabbitMQURL    string `env:"RABBITMQ_URL"`
	EventsExchange string `env:"EVENTS_EXCHANGE" envDefault:"ledger_events"`

	IdempotencyTTL             time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	IdempotencyCleanupSchedule string        `env:"IDEMPOTENCY_CLEANUP_SCHEDULE" envDefault:"@hourly"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config.Load: dotenv: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if cfg.LockTimeout <= 0 {
		return nil, fmt.Errorf("config.Load: LOCK_TIMEOUT must be positive")
	}
	return &cfg, nil
}

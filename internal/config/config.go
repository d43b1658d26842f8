package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Storage  string `env:"STORAGE" envDefault:"postgres"`
	Postgres PostgresConfig
	Redis    RedisConfig
	YooKassa YooKassaConfig
	Admin    AdminConfig
	AMQP     AMQPConfig
	OTel     OTelConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Host string `env:"SERVER_HOST" envDefault:"localhost"`
	Port int    `env:"SERVER_PORT" envDefault:"8080"`
}

func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RedisConfig with an empty Addr disables caching, idempotency replay, rate
// limiting and cross-instance change fan-out.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type PostgresConfig struct {
	User     string `env:"POSTGRES_USER"`
	Password string `env:"POSTGRES_PASSWORD"`
	Name     string `env:"POSTGRES_DB"`
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// YooKassaConfig without shop credentials books every service with manual
// confirmation.
type YooKassaConfig struct {
	ShopID        string `env:"YOOKASSA_SHOP_ID"`
	SecretKey     string `env:"YOOKASSA_SECRET_KEY"`
	ReturnURL     string `env:"YOOKASSA_RETURN_URL" envDefault:"http://localhost:5173"`
	WebhookSecret string `env:"YOOKASSA_WEBHOOK_SECRET"`
	APIBase       string `env:"YOOKASSA_API_BASE" envDefault:"https://api.yookassa.ru/v3"`
}

func (y YooKassaConfig) Enabled() bool {
	return y.ShopID != "" && y.SecretKey != ""
}

type AdminConfig struct {
	JWTSecret string `env:"ADMIN_JWT_SECRET"`
}

type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"booking.events"`
	Queue    string `env:"AMQP_NOTIFY_QUEUE" envDefault:"booking.notifications"`
}

type OTelConfig struct {
	Endpoint    string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"bookingd"`
}

type BookingConfig struct {
	RateLimit      int           `env:"BOOKING_RATE_LIMIT" envDefault:"5"`
	RateWindow     time.Duration `env:"BOOKING_RATE_WINDOW" envDefault:"1m"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	ScheduleTTL    time.Duration `env:"SCHEDULE_CACHE_TTL" envDefault:"15s"`
}

// New loads .env when present and parses the environment.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("%s: parse env: %w", op, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Storage {
	case StorageMemory:
	case StoragePostgres:
		if c.Postgres.User == "" {
			return fmt.Errorf("missing POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("missing POSTGRES_PASSWORD")
		}
		if c.Postgres.Name == "" {
			return fmt.Errorf("missing POSTGRES_DB")
		}
	default:
		return fmt.Errorf("invalid STORAGE %q (want %s or %s)", c.Storage, StoragePostgres, StorageMemory)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}

	if c.Booking.RateLimit < 0 {
		return fmt.Errorf("invalid BOOKING_RATE_LIMIT %d", c.Booking.RateLimit)
	}

	return nil
}

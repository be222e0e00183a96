// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"nexusbuy-analytics/internal/store/mongo"
	"nexusbuy-analytics/internal/store/postgres"
)

type Config struct {
	Port     string `env:"PORT" envDefault:"8000"`
	Env      string `env:"ENV" envDefault:"production"`
	LogLevel string `env:"LOG_LEVEL"`

	CacheBackend  string `env:"CACHE_BACKEND" envDefault:"redis"`
	CachePrefix   string `env:"CACHE_PREFIX"`
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"127.0.0.1"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"nexusbuy"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	MongoHost     string `env:"MONGO_HOST" envDefault:"127.0.0.1"`
	MongoPort     int    `env:"MONGO_PORT" envDefault:"27017"`
	MongoDB       string `env:"MONGO_DB" envDefault:"nexusbuy"`
	MongoUser     string `env:"MONGO_USER"`
	MongoPassword string `env:"MONGO_PASSWORD"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	AdapterTimeout time.Duration `env:"ADAPTER_TIMEOUT" envDefault:"10s"`
	CoalesceMisses bool          `env:"COALESCE_MISSES" envDefault:"false"`
}

// Load parses and validates the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.CacheBackend, validation.Required, validation.In("redis", "memory")),
		validation.Field(&c.RedisAddr, validation.When(c.CacheBackend == "redis", validation.Required)),
		validation.Field(&c.RedisDB, validation.Min(0)),
		validation.Field(&c.PostgresHost, validation.Required),
		validation.Field(&c.MongoHost, validation.Required),
		validation.Field(&c.RequestTimeout, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.AdapterTimeout, validation.Required, validation.Min(time.Second)),
	)
}

func (c Config) Postgres() postgres.Config {
	return postgres.Config{
		Host:     c.PostgresHost,
		Port:     c.PostgresPort,
		Database: c.PostgresDB,
		User:     c.PostgresUser,
		Password: c.PostgresPassword,
		SSLMode:  c.PostgresSSLMode,
	}
}

func (c Config) Mongo() mongo.Config {
	return mongo.Config{
		Host:           c.MongoHost,
		Port:           c.MongoPort,
		Database:       c.MongoDB,
		User:           c.MongoUser,
		Password:       c.MongoPassword,
		ConnectTimeout: c.AdapterTimeout,
	}
}

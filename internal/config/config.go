package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host    string `env:"SERVER_HOST" envDefault:"localhost"`
	Port    string `env:"SERVER_PORT" envDefault:"3000"`
	AppName string `env:"APP_NAME" envDefault:"Photoshoot Studio"`
	// AllowOrigins is passed to the CORS middleware verbatim.
	AllowOrigins string `env:"CORS_ALLOW_ORIGINS" envDefault:"http://localhost:5173"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// MongoConfig holds the MongoDB connection settings shared by all modules.
type MongoConfig struct {
	URI          string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"photoshoot_studio"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host            string `env:"REDIS_HOST" envDefault:"localhost"`
	Port            string `env:"REDIS_PORT" envDefault:"6379"`
	Password        string `env:"REDIS_PASSWORD"`
	Database        int    `env:"REDIS_DB" envDefault:"0"`
	MaxRetries      int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	PoolSize        int    `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns    int    `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	EnableTLS       bool   `env:"REDIS_TLS" envDefault:"false"`
	ConnMaxIdleTime string `env:"REDIS_CONN_MAX_IDLE_TIME" envDefault:"30m"`
	ConnMaxLifetime string `env:"REDIS_CONN_MAX_LIFETIME" envDefault:"1h"`
}

// GetAddr returns the Redis address.
func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

// SSRConfig configures the rendering boundary.
type SSRConfig struct {
	// TemplatePath points at the built index.html; empty uses the embedded shell.
	TemplatePath string `env:"SSR_TEMPLATE_PATH"`
	Placeholder  string `env:"SSR_PLACEHOLDER" envDefault:"<!--app-html-->"`
}

// AssetConfig tunes the per-owner asset lists.
type AssetConfig struct {
	IdleTTL time.Duration `env:"ASSET_IDLE_TTL" envDefault:"30m"`
}

// Config is the root configuration of the service.
type Config struct {
	Server ServerConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	SSR    SSRConfig
	Asset  AssetConfig
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	if cfg.SSR.Placeholder == "" {
		return nil, errors.New("SSR_PLACEHOLDER must not be empty")
	}
	return cfg, nil
}

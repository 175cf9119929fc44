package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth  AuthConfig
	Mongo MongoConfig
	Redis RedisConfig
}

type AuthConfig struct {
	// RegistrationSecret guards POST /auth/register. Registration is refused
	// while it is empty.
	RegistrationSecret string `env:"REGISTRATION_SECRET"`
	// JWTSecret enables the signed credential variant when set.
	JWTSecret    string        `env:"JWT_SECRET"`
	SessionTTL   time.Duration `env:"SESSION_TTL,    default=24h"`
	LoginLockTTL time.Duration `env:"LOGIN_LOCK_TTL, default=5s"`
	TouchWorkers int           `env:"TOUCH_WORKERS,  default=4"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=placequest"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := Parse(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// Parse builds a Config from the given lookuper and checks value ranges.
func Parse(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, err
	}

	if cfg.Auth.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.LoginLockTTL <= 0 {
		return nil, fmt.Errorf("LOGIN_LOCK_TTL must be positive, got %s", cfg.Auth.LoginLockTTL)
	}
	if cfg.Auth.TouchWorkers < 1 {
		return nil, fmt.Errorf("TOUCH_WORKERS must be at least 1, got %d", cfg.Auth.TouchWorkers)
	}
	return &cfg, nil
}

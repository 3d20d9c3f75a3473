// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Daily    DailyConfig    `mapstructure:"daily"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               int      `mapstructure:"port"`
	Mode               string   `mapstructure:"mode"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache configuration. An empty Addr
// disables caching; standings are then recomputed on every read.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds identity configuration.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// DailyConfig holds the daily cycle configuration: the wall-clock reset
// hour and the ordered prompt catalog.
type DailyConfig struct {
	ResetHourUTC int      `mapstructure:"reset_hour_utc"`
	Prompts      []string `mapstructure:"prompts"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// defaultPrompts is the built-in catalog, overridable via daily.prompts.
var defaultPrompts = []string{
	"What's the most ridiculous solution to climate change you can think of?",
	"If you could add one completely useless feature to smartphones, what would it be?",
	"What's the worst possible name for a luxury hotel?",
	"How would you explain the internet to someone from the 1800s?",
	"What's the most awkward superpower you could have?",
	"If animals could leave Yelp reviews for humans, what would they say?",
	"What would be the worst product to add 'smart' technology to?",
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the given directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// Environment variables use underscore separator and uppercase,
	// e.g. SERVER_PORT, DATABASE_HOST, AUTH_JWT_SECRET.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret must be set")
	}
	if len(cfg.Daily.Prompts) == 0 {
		return nil, errors.New("daily.prompts catalog must not be empty")
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit_per_minute", 60)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "riffd")
	v.SetDefault("database.name", "riffd")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	// Redis defaults (empty addr leaves the cache disabled)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "168h")
	v.SetDefault("auth.bcrypt_cost", 10)

	// Daily cycle defaults
	v.SetDefault("daily.reset_hour_utc", 4)
	v.SetDefault("daily.prompts", defaultPrompts)
}

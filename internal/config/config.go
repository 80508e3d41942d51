package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Mongo    MongoConfig
	Ledger   LedgerConfig
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port        int
	StoreDriver string // "postgres" or "memory"
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	DBName   string
	SSLMode  string
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string // bcrypt hash, admin login is disabled when empty
	TokenTTL          time.Duration
}

// RedisConfig holds the stats cache configuration. An empty Addr disables the cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	StatsTTL time.Duration
}

// RabbitMQConfig holds the domain event publisher configuration. An empty URL disables publishing.
type RabbitMQConfig struct {
	URL   string
	Queue string
}

// MongoConfig holds the testimonial store configuration. An empty URI keeps testimonials in memory.
type MongoConfig struct {
	URI      string
	Database string
}

// LedgerConfig holds the points economy settings
type LedgerConfig struct {
	SignupBonus       int64
	DefaultItemPoints int64
	SwapTimeout       time.Duration
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

var envBindings = map[string]string{
	"server.port":                "SERVER_PORT",
	"server.store_driver":        "STORE_DRIVER",
	"database.host":              "DB_HOST",
	"database.port":              "DB_PORT",
	"database.username":          "DB_USERNAME",
	"database.password":          "DB_PASSWORD",
	"database.name":              "DB_NAME",
	"database.sslmode":           "DB_SSLMODE",
	"auth.jwt_secret":            "JWT_SECRET",
	"auth.admin_username":        "ADMIN_USERNAME",
	"auth.admin_password_hash":   "ADMIN_PASSWORD_HASH",
	"auth.token_ttl":             "JWT_TOKEN_TTL",
	"redis.addr":                 "REDIS_ADDR",
	"redis.password":             "REDIS_PASSWORD",
	"redis.db":                   "REDIS_DB",
	"redis.stats_ttl":            "REDIS_STATS_TTL",
	"rabbitmq.url":               "RABBITMQ_URL",
	"rabbitmq.queue":             "RABBITMQ_QUEUE",
	"mongo.uri":                  "MONGO_URI",
	"mongo.database":             "MONGO_DATABASE",
	"ledger.signup_bonus":        "LEDGER_SIGNUP_BONUS",
	"ledger.default_item_points": "LEDGER_DEFAULT_ITEM_POINTS",
	"ledger.swap_timeout":        "LEDGER_SWAP_TIMEOUT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.store_driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.username", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.name", "rewear")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("auth.jwt_secret", "your-secret-key-here")
	v.SetDefault("auth.admin_username", "admin")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stats_ttl", time.Minute)
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.queue", "rewear.ledger.events")
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "rewear")
	v.SetDefault("ledger.signup_bonus", 50)
	v.SetDefault("ledger.default_item_points", 25)
	v.SetDefault("ledger.swap_timeout", 5*time.Second)
}

// LoadConfig loads the configuration from a .env file, if present, and environment variables
func LoadConfig() (*Config, error) {
	// A missing .env is fine, the environment alone is enough
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetInt("server.port"),
			StoreDriver: v.GetString("server.store_driver"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			Username: v.GetString("database.username"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.name"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Auth: AuthConfig{
			JWTSecret:         v.GetString("auth.jwt_secret"),
			AdminUsername:     v.GetString("auth.admin_username"),
			AdminPasswordHash: v.GetString("auth.admin_password_hash"),
			TokenTTL:          v.GetDuration("auth.token_ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			StatsTTL: v.GetDuration("redis.stats_ttl"),
		},
		RabbitMQ: RabbitMQConfig{
			URL:   v.GetString("rabbitmq.url"),
			Queue: v.GetString("rabbitmq.queue"),
		},
		Mongo: MongoConfig{
			URI:      v.GetString("mongo.uri"),
			Database: v.GetString("mongo.database"),
		},
		Ledger: LedgerConfig{
			SignupBonus:       v.GetInt64("ledger.signup_bonus"),
			DefaultItemPoints: v.GetInt64("ledger.default_item_points"),
			SwapTimeout:       v.GetDuration("ledger.swap_timeout"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late at runtime
func (c *Config) Validate() error {
	switch c.Server.StoreDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Server.StoreDriver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must not be empty")
	}
	if c.Ledger.SignupBonus < 0 || c.Ledger.DefaultItemPoints < 0 {
		return fmt.Errorf("ledger point settings must not be negative")
	}
	if c.Ledger.SwapTimeout <= 0 {
		return fmt.Errorf("LEDGER_SWAP_TIMEOUT must be positive")
	}
	return nil
}

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppHost     string
	AppPort     string
	CORSOrigins string

	JWTSecret    string
	JWTExpiresIn time.Duration

	DB    DBConfig
	Redis RedisConfig

	RabbitURL      string
	RabbitExchange string

	RecaptchaSecret string

	LogLevel  string
	LogFormat string
}

type DBConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	MaxOpenConns  int
	AutoMigrate   bool
	MigrationsDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Load reads configuration from the process environment. Call LoadEnv first
// to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		AppHost:     GetEnv("APP_HOST", ""),
		AppPort:     GetEnv("APP_PORT", "3000"),
		CORSOrigins: GetEnv("CORS_ORIGINS", "*"),
		JWTSecret:   GetEnv("JWT_SECRET", ""),
		DB: DBConfig{
			Host:          GetEnv("DB_HOST", "127.0.0.1"),
			Port:          GetEnvInt("DB_PORT", 3306),
			User:          GetEnv("DB_USER", "root"),
			Password:      GetEnv("DB_PASSWORD", ""),
			Name:          GetEnv("DB_NAME", "pameran"),
			MaxOpenConns:  GetEnvInt("DB_MAX_OPEN_CONNS", 25),
			AutoMigrate:   GetEnvBool("DB_AUTO_MIGRATE", false),
			MigrationsDir: GetEnv("MIGRATIONS_DIR", "migrations/mysql"),
		},
		Redis: RedisConfig{
			Addr:     GetEnv("REDIS_ADDR", ""),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvInt("REDIS_DB", 0),
		},
		RabbitURL:       GetEnv("RABBITMQ_URL", ""),
		RabbitExchange:  GetEnv("RABBITMQ_EXCHANGE", "checkins"),
		RecaptchaSecret: GetEnv("RECAPTCHA_SECRET_KEY", ""),
		LogLevel:        GetEnv("LOG_LEVEL", "info"),
		LogFormat:       GetEnv("LOG_FORMAT", "console"),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	ttl, err := ParseLifetime(GetEnv("JWT_EXPIRES_IN", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_EXPIRES_IN: %w", err)
	}
	cfg.JWTExpiresIn = ttl

	return cfg, nil
}

func (c *Config) Addr() string {
	return c.AppHost + ":" + c.AppPort
}

// ParseLifetime accepts Go durations ("90m", "24h") and whole days ("7d").
func ParseLifetime(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid lifetime %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid lifetime %q", s)
	}
	return d, nil
}

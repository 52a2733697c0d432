package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr      string
	PostgresDSN   string
	RedisAddr     string
	KafkaBrokers  []string
	AccessSecret  string
	RefreshSecret string
	InviteSecret  string
	TokenIssuer   string
	TokenAudience string
}

// Load читает настройки из окружения. Адреса инфраструктуры имеют
// локальные значения по умолчанию, ключи подписи — нет: без них
// сервис не стартует.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("failed to load .env file, using env vars only", "error", err)
	}

	cfg := &Config{
		HTTPAddr:      os.Getenv("HTTP_ADDR"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		KafkaBrokers:  []string{os.Getenv("KAFKA_BROKER")},
		AccessSecret:  os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		InviteSecret:  os.Getenv("JWT_INVITE_SECRET"),
		TokenIssuer:   os.Getenv("JWT_ISSUER"),
		TokenAudience: os.Getenv("JWT_AUDIENCE"),
	}

	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.PostgresDSN == "" {
		cfg.PostgresDSN = "host=localhost user=postgres password=postgres dbname=novellib sslmode=disable"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if len(cfg.KafkaBrokers) == 1 && cfg.KafkaBrokers[0] == "" {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.TokenIssuer == "" {
		cfg.TokenIssuer = "novellib"
	}
	if cfg.TokenAudience == "" {
		cfg.TokenAudience = "novellib-users"
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" || cfg.InviteSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET, JWT_REFRESH_SECRET and JWT_INVITE_SECRET must be set")
	}

	slog.Info("config loaded",
		"http_addr", cfg.HTTPAddr,
		"redis_addr", cfg.RedisAddr,
		"kafka_brokers", cfg.KafkaBrokers,
		"token_issuer", cfg.TokenIssuer)
	return cfg, nil
}

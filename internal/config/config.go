package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN           string
	Environment     string
	HTTPAddr        string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	StripeSecretKey string

	// Настройки клиента синхронизации (cmd/watch)
	APIBaseURL  string
	WatchUserID string
}

// Load конфигурация сервера; DB_DSN обязателен
func Load() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

// LoadWatch конфигурация клиента синхронизации; базе данных он не нужен,
// обязателен только идентификатор пользователя
func LoadWatch() (*Config, error) {
	cfg, err := loadEnv()
	if err != nil {
		return nil, err
	}

	if cfg.WatchUserID == "" {
		return nil, fmt.Errorf("WATCH_USER_ID is required but not set")
	}

	return cfg, nil
}

func loadEnv() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	// Читаем напрямую из переменных окружения (после godotenv.Load они там)
	cfg := &Config{
		DBDSN:           os.Getenv("DB_DSN"),
		Environment:     os.Getenv("ENV"),
		HTTPAddr:        os.Getenv("HTTP_ADDR"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		APIBaseURL:      os.Getenv("API_BASE_URL"),
		WatchUserID:     os.Getenv("WATCH_USER_ID"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:8080"
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be a number: %w", err)
		}
		cfg.RedisDB = n
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

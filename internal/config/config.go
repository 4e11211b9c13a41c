// Package config предоставялет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string          `yaml:"migrations_path" env-default:"./migrations"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	Redis                   RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	JWTToken                JWTToken        `yaml:"jwttoken"`
	Sepay                   Sepay           `yaml:"sepay"`
	Player                  Player          `yaml:"player"`
	Sweeper                 Sweeper         `yaml:"sweeper"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	Address     string        `yaml:"address" env-default:":8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"15s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
	// RateLimit запросов в секунду для авторизованной группы маршрутов
	RateLimit float64 `yaml:"rate_limit" env-default:"10"`
	RateBurst int     `yaml:"rate_burst" env-default:"20"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	Address     string        `yaml:"address" env:"REDIS_ADDRESS"`
	Password    string        `yaml:"password" env:"REDIS_PASSWORD"`
	User        string        `yaml:"user"`
	DB          int           `yaml:"db"`
	MaxRetries  int           `yaml:"max_retries"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RabbitMQ настройки брокера. Пустой URL отключает публикацию событий.
type RabbitMQ struct {
	URL        string        `yaml:"url" env:"RABBITMQ_URL"`
	MaxRetries int           `yaml:"max_retries" env-default:"5"`
	RetryDelay time.Duration `yaml:"retry_delay" env-default:"2s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	SecretKey string        `yaml:"secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"24h"`
}

// Sepay настройки платёжного шлюза банковских переводов.
//
// Пустой WebhookAPIKey отключает проверку заголовка Authorization у webhook.
// Пустой APIKey отключает ручную проверку платежа через API шлюза.
type Sepay struct {
	WebhookAPIKey string        `yaml:"webhook_api_key" env:"SEPAY_WEBHOOK_API_KEY"`
	APIKey        string        `yaml:"api_key" env:"SEPAY_API_KEY"`
	AccountNumber string        `yaml:"account_number" env:"SEPAY_ACCOUNT_NUMBER"`
	BaseURL       string        `yaml:"base_url" env-default:"https://my.sepay.vn/userapi"`
	Timeout       time.Duration `yaml:"timeout" env-default:"10s"`
	MaxRetries    int           `yaml:"max_retries" env-default:"2"`
	RetryDelay    time.Duration `yaml:"retry_delay" env-default:"1s"`
	ListLimit     int           `yaml:"list_limit" env-default:"50"`
	// Timezone часовой пояс дат в ответах шлюза.
	Timezone string `yaml:"timezone" env-default:"Asia/Ho_Chi_Minh"`
}

// Player настройки хранения сессий плеера.
type Player struct {
	SessionTTL time.Duration `yaml:"session_ttl" env-default:"24h"`
}

// Sweeper настройки фоновой отметки просроченных платежей.
type Sweeper struct {
	Interval time.Duration `yaml:"interval" env-default:"5m"`
}

// Load читает конфиг из файла по пути path.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file: %s - does not exist", path)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}
	return &cfg, nil
}

// MustLoad функция для загрузки конфига, путь берётся из CONFIG_PATH
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	API     APIConfig
	Cache   CacheConfig
	Socket  SocketConfig
	Logging LoggingConfig
}
type ServerConfig struct {
	Port         string
	Host         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// APIConfig - параметры внешнего API курсов валют
type APIConfig struct {
	ExchangeAPIURL string
	Timeout        time.Duration
	RatePerSecond  float64
	Burst          int
}
type CacheConfig struct {
	MaxDates int // сколько дневных таблиц держим в памяти
}
type SocketConfig struct {
	Broadcast bool // ответ rate уходит всем подключенным клиентам
	QueueSize int
}
type LoggingConfig struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" или "text"
}

// Метод для получения адреса сервера
func (s *ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// loadEnvFile подгружает .env из текущей директории, если он есть
func loadEnvFile() {
	if err := godotenv.Load(); err == nil {
		return
	}
	cwd, _ := os.Getwd()
	envPath := filepath.Join(cwd, ".env")
	if err := godotenv.Load(envPath); err != nil {
		fmt.Printf("⚠️ .env not loaded (%v), using environment and defaults\n", err)
	}
}

func Load() *Config {
	loadEnvFile()
	return FromEnv()
}

// FromEnv собирает конфигурацию только из переменных окружения
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			Mode:         getEnv("GIN_MODE", "debug"),
			ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_TTL", 30*time.Minute),
		},
		API: APIConfig{
			ExchangeAPIURL: getEnv("EXCHANGE_API_URL", "https://cdn.jsdelivr.net/npm/@fawazahmed0"),
			Timeout:        getEnvAsDuration("API_TIMEOUT", 3*time.Second),
			RatePerSecond:  getEnvAsFloat("UPSTREAM_RATE", 1),
			Burst:          getEnvAsInt("UPSTREAM_BURST", 3),
		},
		Cache: CacheConfig{
			MaxDates: getEnvAsInt("CACHE_MAX_DATES", 3),
		},
		Socket: SocketConfig{
			Broadcast: getEnvAsBool("SOCKET_BROADCAST", true),
			QueueSize: getEnvAsInt("SOCKET_QUEUE_SIZE", 64),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

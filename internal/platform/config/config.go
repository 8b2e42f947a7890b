package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures process level configuration for the server and ingest CLI.
type Config struct {
	Addr           string
	DatabaseURL    string
	LogLevel       string
	LogFormat      string
	TxTimeout      time.Duration
	ExtractLockTTL time.Duration
	ImportMaxBytes int64
	AutoMigrate    bool
	Redis          RedisConfig
}

// RedisConfig is optional; an empty URL disables the distributed extract lock.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LoadDotEnv reads .env files into the environment. A missing file is fine.
func LoadDotEnv(files ...string) error {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:           getEnv("TDRS_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		TxTimeout:      60 * time.Second,
		ExtractLockTTL: 2 * time.Minute,
		ImportMaxBytes: 5 << 20,
		AutoMigrate:    true,
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("DATABASE_URL environment variable is not set")
	}

	var err error
	if cfg.TxTimeout, err = getEnvAsDuration("TX_TIMEOUT", cfg.TxTimeout); err != nil {
		return Config{}, err
	}
	if cfg.ExtractLockTTL, err = getEnvAsDuration("EXTRACT_LOCK_TTL", cfg.ExtractLockTTL); err != nil {
		return Config{}, err
	}
	maxBytes, err := getEnvAsInt("IMPORT_MAX_BYTES", int(cfg.ImportMaxBytes))
	if err != nil {
		return Config{}, err
	}
	cfg.ImportMaxBytes = int64(maxBytes)
	if cfg.AutoMigrate, err = getEnvAsBool("AUTO_MIGRATE", cfg.AutoMigrate); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = getEnvAsInt("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DialTimeout, err = getEnvAsDuration("REDIS_DIAL_TIMEOUT", cfg.Redis.DialTimeout); err != nil {
		return Config{}, err
	}

	switch strings.ToLower(cfg.LogFormat) {
	case "json", "text":
	default:
		return Config{}, fmt.Errorf("invalid value for LOG_FORMAT: expected json or text, got '%s'", cfg.LogFormat)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid value for %s: expected a positive integer, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("invalid value for %s: expected a positive duration, got '%s'", key, valueStr)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: expected a boolean, got '%s'", key, valueStr)
	}
	return value, nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"s3drain/internal/models"
	"s3drain/pkg/utils"
)

type Config struct {
	ApiURL    string
	AccessKey string
	SecretKey string
	Region    string
	Drain     DrainConfig
}

// DrainConfig is the YAML-backed behavior configuration.
type DrainConfig struct {
	IgnorePattern       models.IgnoreRules `mapstructure:"ignore_pattern"`
	TargetPath          string             `mapstructure:"target_path"`
	DeleteAfterDownload bool               `mapstructure:"delete_after_download"`
	Workers             int                `mapstructure:"workers"`
	Retry               RetryConfig        `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
}

// Load reads credentials from the environment (optionally seeded from a
// .env file) and behavior configuration from the YAML file at configPath.
// A missing YAML file falls back to defaults; an unreadable target
// directory is a fatal configuration error.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn(".env file not found, using environment variables only")
	}

	config := &Config{
		ApiURL:    getEnv("API_URL", ""),
		AccessKey: getEnv("ACCESS_KEY", ""),
		SecretKey: getEnv("SECRET_KEY", ""),
		Region:    getEnv("REGION", ""),
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetDefault("target_path", "./s3drain")
	v.SetDefault("workers", 1)
	v.SetDefault("retry.max_attempts", 5)
	v.SetDefault("retry.initial_backoff", "1s")

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			slog.Warn("config file not found, using defaults", "path", configPath)
		} else {
			return nil, fmt.Errorf("reading config %s: %w", configPath, err)
		}
	}

	if err := v.Unmarshal(&config.Drain); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", configPath, err)
	}

	if config.Drain.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", config.Drain.Workers)
	}
	if config.Drain.Retry.MaxAttempts < 1 {
		return nil, fmt.Errorf("retry.max_attempts must be at least 1, got %d", config.Drain.Retry.MaxAttempts)
	}

	if err := utils.EnsureDir(config.Drain.TargetPath); err != nil {
		return nil, fmt.Errorf("target path is not usable: %w", err)
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

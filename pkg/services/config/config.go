package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type CacheConfig struct {
	TTLWindowSeconds int     `mapstructure:"ttl_window_seconds"`
	Capacity         int     `mapstructure:"capacity"`
	SoftWatermark    float64 `mapstructure:"soft_watermark"`
	HardWatermark    float64 `mapstructure:"hard_watermark"`
}

type StoreConfig struct {
	PageSize int `mapstructure:"page_size"`
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Store    StoreConfig    `mapstructure:"store"`
}

// Load reads configuration from an optional file merged with TOKENATLAS_*
// environment variables. Defaults cover everything but the database DSN.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "5002")
	v.SetDefault("cache.ttl_window_seconds", 120)
	v.SetDefault("cache.capacity", 256)
	v.SetDefault("cache.soft_watermark", 70.0)
	v.SetDefault("cache.hard_watermark", 85.0)
	v.SetDefault("store.page_size", 1000)

	v.SetEnvPrefix("TOKENATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required (TOKENATLAS_DATABASE_DSN)")
	}
	return &cfg, nil
}

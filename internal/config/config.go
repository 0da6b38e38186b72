package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration, read from the environment.
type Config struct {
	Port        string `mapstructure:"port"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisAddr   string `mapstructure:"redis_addr"`
	JWTSecret   string `mapstructure:"jwt_secret"`
	JWTTTL      time.Duration
	// GoogleAIKey enables the chat assistant when set.
	GoogleAIKey    string `mapstructure:"googleai_api_key"`
	AssistantModel string `mapstructure:"assistant_model"`

	ChatRateLimit  int           `mapstructure:"chat_rate_limit"`
	ChatRateWindow time.Duration
}

// Load reads configuration from environment variables (a .env file, if
// present, is loaded by main before this runs).
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("database_url", "host=localhost user=postgres password=postgres dbname=campusgigs port=5432 sslmode=disable")
	v.SetDefault("redis_addr", "")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("jwt_ttl_minutes", 60*24)
	v.SetDefault("googleai_api_key", "")
	v.SetDefault("assistant_model", "gemini-1.5-flash")
	v.SetDefault("chat_rate_limit", 30)
	v.SetDefault("chat_rate_window_seconds", 60)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	cfg.JWTTTL = time.Duration(v.GetInt("jwt_ttl_minutes")) * time.Minute
	cfg.ChatRateWindow = time.Duration(v.GetInt("chat_rate_window_seconds")) * time.Second
	return cfg, nil
}

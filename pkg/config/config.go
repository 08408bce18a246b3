// Package config provides configuration loading and validation for the CLI
// and daemon surfaces.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// RedisConfig points at the optional shared rate-state store.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Config holds runtime configuration. Everything has a sensible default;
// the zero configuration runs keyless against the public endpoint.
type Config struct {
	AppEnv    string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"omitempty,oneof=text json"`
	LogFile   string `mapstructure:"log_file"`
	SentryDSN string `mapstructure:"sentry_dsn"`

	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url" validate:"required,url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"min=0"`

	MetricsAddr string      `mapstructure:"metrics_addr"`
	Redis       RedisConfig `mapstructure:"redis"`
}

// Load reads configuration from .env files, an optional per-environment YAML
// file, and environment variables, validates it, and returns the result
// along with the viper instance for watching.
func Load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(".env.local", ".env"); err != nil {
		// env files are optional
		_ = err
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetEnvPrefix("PUBPROXY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app_env", env)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("log_file", "")
	v.SetDefault("sentry_dsn", "")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "http://pubproxy.com/api/proxy")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigParseError); ok {
			return nil, nil, fmt.Errorf("read config: %w", err)
		}
		// a missing config file is fine; env vars and defaults apply
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.AppEnv = env

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, v, nil
}

// Watch re-reads the config file on change and hands the re-validated
// result to onChange. Invalid updates are logged and dropped.
func Watch(v *viper.Viper, log *slog.Logger, onChange func(*Config)) {
	if v == nil || onChange == nil {
		return
	}
	if log == nil {
		log = slog.Default()
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		log.Info("config file changed", slog.String("file", e.Name), slog.String("op", e.Op.String()))

		var cfg Config
		if err := v.Unmarshal(&cfg); err != nil {
			log.Error("reloaded config is unreadable", slog.Any("error", err))
			return
		}

		validate := validator.New(validator.WithRequiredStructEnabled())
		if err := validate.Struct(cfg); err != nil {
			log.Error("reloaded config is invalid", slog.Any("error", err))
			return
		}

		onChange(&cfg)
	})
	v.WatchConfig()
}

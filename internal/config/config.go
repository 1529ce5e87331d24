package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type Config struct {
	APIBaseURL string `yaml:"api_base_url" validate:"required,url"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFile  string `yaml:"log_file"`

	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`
	UploadTimeout  time.Duration `yaml:"upload_timeout" validate:"gt=0"`

	MaxUploadBytes  int64         `yaml:"max_upload_bytes" validate:"gt=0"`
	NotificationTTL time.Duration `yaml:"notification_ttl" validate:"gt=0"`

	APIRateLimitRPS     float64 `yaml:"api_rate_limit_rps" validate:"gte=0"`
	APIRateLimitBurst   int     `yaml:"api_rate_limit_burst" validate:"gte=0"`
	APIRetryMaxAttempts int     `yaml:"api_retry_max_attempts" validate:"gte=1,lte=10"`
	APIBreakerEnabled   bool    `yaml:"api_breaker_enabled"`

	StatusPort string `yaml:"status_port" validate:"omitempty,numeric"`

	NATSURL     string `yaml:"nats_url" validate:"omitempty,url"`
	NATSSubject string `yaml:"nats_subject" validate:"required"`

	AssumeYes bool `yaml:"assume_yes"`
	NoColor   bool `yaml:"no_color"`
}

func Defaults() Config {
	return Config{
		APIBaseURL:          "http://localhost:8000",
		LogLevel:            "warn",
		RequestTimeout:      60 * time.Second,
		UploadTimeout:       120 * time.Second,
		MaxUploadBytes:      10 * 1024 * 1024,
		NotificationTTL:     5 * time.Second,
		APIRetryMaxAttempts: 1,
		APIBreakerEnabled:   true,
		NATSSubject:         "docchat.session.events",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// DOCCHAT_CONFIG and the environment, in that order of precedence.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("DOCCHAT_CONFIG"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg = Config{
		APIBaseURL: mustEnv("API_BASE_URL", cfg.APIBaseURL),

		LogLevel: mustEnv("LOG_LEVEL", cfg.LogLevel),
		LogFile:  mustEnv("LOG_FILE", cfg.LogFile),

		RequestTimeout: mustEnvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout),
		UploadTimeout:  mustEnvDuration("UPLOAD_TIMEOUT", cfg.UploadTimeout),

		MaxUploadBytes:  mustEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes),
		NotificationTTL: mustEnvDuration("NOTIFICATION_TTL", cfg.NotificationTTL),

		APIRateLimitRPS:     mustEnvFloat("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS),
		APIRateLimitBurst:   mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst),
		APIRetryMaxAttempts: mustEnvInt("API_RETRY_MAX_ATTEMPTS", cfg.APIRetryMaxAttempts),
		APIBreakerEnabled:   mustEnvBool("API_BREAKER_ENABLED", cfg.APIBreakerEnabled),

		StatusPort: mustEnv("STATUS_PORT", cfg.StatusPort),

		NATSURL:     mustEnv("NATS_URL", cfg.NATSURL),
		NATSSubject: mustEnv("NATS_SUBJECT", cfg.NATSSubject),

		AssumeYes: mustEnvBool("ASSUME_YES", cfg.AssumeYes),
		NoColor:   mustEnvBool("NO_COLOR", cfg.NoColor),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// mustEnvDuration accepts Go durations ("90s") and bare seconds ("90").
func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	SMTP    SMTPConfig    `yaml:"smtp"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds HTTP gateway settings.
type ServerConfig struct {
	Host                  string   `yaml:"host"`
	Port                  int      `yaml:"port"`
	AllowedOrigins        []string `yaml:"allowed_origins"`
	MaxRequestBytes       int64    `yaml:"max_request_bytes"`
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests"`
	RequestTimeoutSeconds int      `yaml:"request_timeout_seconds"`
}

// GetHost returns the bind host, defaulting to all interfaces.
func (s ServerConfig) GetHost() string {
	if s.Host == "" {
		return "0.0.0.0"
	}
	return s.Host
}

// RequestTimeout returns the per-request ceiling as a duration.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// SMTPConfig holds session-level SMTP policy. Credentials are NOT
// configured here; every batch carries its own endpoint. These knobs
// govern how sessions behave regardless of endpoint.
type SMTPConfig struct {
	ConnectTimeoutSeconds int `yaml:"connect_timeout_seconds"`
	SendTimeoutSeconds    int `yaml:"send_timeout_seconds"`
	// InsecureSkipVerify disables TLS certificate validation. Never
	// enabled by default; only for environments with self-signed test
	// servers.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// ConnectTimeout returns the session-open ceiling as a duration.
func (s SMTPConfig) ConnectTimeout() time.Duration {
	return time.Duration(s.ConnectTimeoutSeconds) * time.Second
}

// SendTimeout returns the per-message send ceiling as a duration.
func (s SMTPConfig) SendTimeout() time.Duration {
	return time.Duration(s.SendTimeoutSeconds) * time.Second
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII bool   `yaml:"redact_pii"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                  "0.0.0.0",
			Port:                  8080,
			AllowedOrigins:        []string{"http://localhost:5173", "http://localhost:8080"},
			MaxRequestBytes:       1 << 20, // 1 MiB
			MaxConcurrentRequests: 32,
			RequestTimeoutSeconds: 300,
		},
		SMTP: SMTPConfig{
			ConnectTimeoutSeconds: 15,
			SendTimeoutSeconds:    30,
			InsecureSkipVerify:    false,
		},
		Logging: LoggingConfig{
			Level:     "INFO",
			RedactPII: true,
		},
	}
}

// Load reads configuration from a YAML file, applying defaults for
// anything the file omits. A missing file is not an error; defaults
// are returned so the server can run from env alone.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

// LoadFromEnv loads the YAML file then applies environment overrides.
// A .env file in the working directory is honored if present.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if host := os.Getenv("SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if port := os.Getenv("SERVER_PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_PORT %q: %w", port, err)
		}
		cfg.Server.Port = p
	}
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = splitAndTrim(origins)
	}
	if v := os.Getenv("SMTP_CONNECT_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_CONNECT_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.SMTP.ConnectTimeoutSeconds = n
	}
	if v := os.Getenv("SMTP_SEND_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SMTP_SEND_TIMEOUT_SECONDS %q: %w", v, err)
		}
		cfg.SMTP.SendTimeoutSeconds = n
	}
	if v := os.Getenv("SMTP_INSECURE_SKIP_VERIFY"); v != "" {
		cfg.SMTP.InsecureSkipVerify = v == "true" || v == "1"
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if v := os.Getenv("LOG_REDACT_PII"); v != "" {
		cfg.Logging.RedactPII = v != "false" && v != "0"
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.SMTP.ConnectTimeoutSeconds <= 0 {
		return fmt.Errorf("smtp.connect_timeout_seconds must be positive, got %d", c.SMTP.ConnectTimeoutSeconds)
	}
	if c.SMTP.SendTimeoutSeconds <= 0 {
		return fmt.Errorf("smtp.send_timeout_seconds must be positive, got %d", c.SMTP.SendTimeoutSeconds)
	}
	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

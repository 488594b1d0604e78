package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	pkgRetry "analyst-agent/internal/pkg/retry"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string `env:"SERVER_ADDR" envDefault:":8080"`

	// AI backend configuration
	AICfg AIConfig `envPrefix:"AI_"`

	// Session registry configuration
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"1h"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// File upload configuration
	FileUploadCfg FileUploadConfig `envPrefix:"FILE_UPLOAD_"`

	// Environment (set from flag, not from env var)
	Environment string
}

// AIConfig holds provider endpoints and sampling defaults for both backend
// kinds. The probe timeout bounds the connection check; the request timeout
// bounds completions.
type AIConfig struct {
	Backend string `env:"BACKEND" envDefault:"local"`
	APIKey  string `env:"API_KEY"`

	LocalURL   string `env:"LOCAL_URL" envDefault:"http://localhost:1234"`
	LocalModel string `env:"LOCAL_MODEL" envDefault:"local-model"`

	CloudURL   string `env:"CLOUD_URL" envDefault:"https://api.together.xyz/v1"`
	CloudModel string `env:"CLOUD_MODEL" envDefault:"meta-llama/Llama-2-70b-chat-hf"`

	ProbeTimeout   time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`

	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"1000"`

	HTTPClientCfg HTTPClientConfig     `envPrefix:"HTTP_"`
	Retry         pkgRetry.RetryConfig `envPrefix:"RETRY_"`
}

type HTTPClientConfig struct {
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
}

// FileUploadConfig holds file upload limits
type FileUploadConfig struct {
	MaxFileSize   int64 `env:"MAX_FILE_SIZE" envDefault:"52428800"`  // 50 MiB
	MaxUploadSize int64 `env:"MAX_UPLOAD_SIZE" envDefault:"67108864"` // 64 MiB multipart cap
}

func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	envFile := getEnvFile(*envFlag)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = *envFlag

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.AICfg.Backend) {
	case "local", "cloud":
	default:
		return fmt.Errorf("AI_BACKEND must be local or cloud, got %q", cfg.AICfg.Backend)
	}

	if cfg.SessionTTL < time.Minute {
		return fmt.Errorf("SESSION_TTL must be at least 1m, got %s", cfg.SessionTTL)
	}

	if cfg.FileUploadCfg.MaxFileSize < 1 {
		return fmt.Errorf("FILE_UPLOAD_MAX_FILE_SIZE must be positive, got %d", cfg.FileUploadCfg.MaxFileSize)
	}

	if cfg.FileUploadCfg.MaxUploadSize < cfg.FileUploadCfg.MaxFileSize {
		return fmt.Errorf("FILE_UPLOAD_MAX_UPLOAD_SIZE (%d) must not be smaller than FILE_UPLOAD_MAX_FILE_SIZE (%d)",
			cfg.FileUploadCfg.MaxUploadSize, cfg.FileUploadCfg.MaxFileSize)
	}

	return nil
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}

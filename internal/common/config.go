package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/adonai404/empresas-imperial-sub001/constants"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Extraction ExtractionConfig
	LLM        LLMConfig
	Batch      BatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCHealthAddr string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// ExtractionConfig points the pipeline at the remote fiscal extraction endpoint.
type ExtractionConfig struct {
	Endpoint     string
	APIKey       string
	Timeout      time.Duration
	MaxTextChars int
}

// LLMConfig holds configuration for the provider behind the extraction endpoint.
type LLMConfig struct {
	Provider     string // "openai" or "gemini"
	Model        string
	APIKey       string
	BaseURL      string
	Temperature  float32
	Timeout      time.Duration
	GeminiAPIKey string
	GeminiModel  string
}

// BatchConfig holds batch limits, pacing and retry settings.
type BatchConfig struct {
	MaxFiles       int
	MaxFileSizeMB  int
	MaxPages       int
	PacingDelay    time.Duration
	RetryMax       int
	RetryBaseDelay time.Duration
	RetryFrom      string // "parse" or "extract"
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Default().Warn("config.dotenv.load_failed", "error", err)
	}

	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":8081"),
			CORSOrigins:    getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
			RequestTimeout: getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 60*time.Second),
		},
		Extraction: ExtractionConfig{
			Endpoint:     getEnv("EXTRACTION_URL", "http://localhost:8080/api/extract-fiscal-data"),
			APIKey:       getEnv("EXTRACTION_API_KEY", ""),
			Timeout:      getEnvAsDuration("EXTRACTION_TIMEOUT", 90*time.Second),
			MaxTextChars: getEnvAsInt("EXTRACTION_MAX_TEXT_CHARS", constants.MaxTextChars),
		},
		LLM: LLMConfig{
			Provider:     strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature:  getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:      getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
			GeminiModel:  getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		},
		Batch: BatchConfig{
			MaxFiles:       getEnvAsInt("BATCH_MAX_FILES", constants.MaxBatchFiles),
			MaxFileSizeMB:  getEnvAsInt("BATCH_MAX_FILE_MB", constants.MaxFileSizeMB),
			MaxPages:       getEnvAsInt("PDF_MAX_PAGES", constants.MaxPDFPages),
			PacingDelay:    getEnvAsDuration("BATCH_PACING_DELAY", 500*time.Millisecond),
			RetryMax:       getEnvAsInt("BATCH_RETRY_MAX", 2),
			RetryBaseDelay: getEnvAsDuration("BATCH_RETRY_BASE_DELAY", 2*time.Second),
			RetryFrom:      strings.ToLower(getEnv("BATCH_RETRY_FROM", "parse")),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate checks the settings every binary depends on. Database and LLM
// credentials are validated by the binaries that need them.
func (c *Config) Validate() error {
	if c.Extraction.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_URL is required", ErrInvalidInput)
	}
	if c.Extraction.MaxTextChars <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_MAX_TEXT_CHARS must be positive", ErrInvalidInput)
	}
	if c.Batch.MaxFiles <= 0 || c.Batch.MaxFileSizeMB <= 0 || c.Batch.MaxPages <= 0 {
		return NewAppError("CONFIG_ERROR", "batch limits must be positive", ErrInvalidInput)
	}
	if c.Batch.RetryMax < 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_RETRY_MAX must not be negative", ErrInvalidInput)
	}
	if c.Batch.RetryFrom != "parse" && c.Batch.RetryFrom != "extract" {
		return NewAppError("CONFIG_ERROR", "BATCH_RETRY_FROM must be 'parse' or 'extract'", ErrInvalidInput)
	}
	return nil
}

// ValidateServer checks the settings needed by the long-running daemon.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	switch c.LLM.Provider {
	case "openai":
		if c.LLM.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "gemini":
		if c.LLM.GeminiAPIKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "LLM_PROVIDER must be 'openai' or 'gemini'", ErrInvalidInput)
	}
	return nil
}

package common

import (
	"os"
	"strconv"
	"time"

	"github.com/joseph-ayodele/invoice-validator/constants"
)

// Config holds all application configuration
type Config struct {
	Templates  TemplatesConfig
	LLM        LLMConfig
	Pipeline   PipelineConfig
	Validation ValidateConfig
}

// TemplatesConfig holds template-store configuration
type TemplatesConfig struct {
	Dir string // badger database directory for persisted templates
}

// LLMConfig holds Anthropic client configuration
type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxTokens   int
}

// PipelineConfig holds orchestrator behavior knobs
type PipelineConfig struct {
	// ExtractionRetries bounds re-attempts of the extraction call on
	// transient failure before the document fails.
	ExtractionRetries int
	// RetryBackoff is the pause between extraction attempts.
	RetryBackoff time.Duration
	// CallsPerSecond is the shared budget across all concurrent documents.
	CallsPerSecond float64
	// AdmissionTimeout bounds how long a stage blocks waiting for budget.
	AdmissionTimeout time.Duration
	// BatchConcurrency bounds how many documents process in parallel.
	BatchConcurrency int
}

// ValidateConfig holds arithmetic and date-check behavior
type ValidateConfig struct {
	// Tolerance is the absolute currency tolerance for arithmetic checks.
	Tolerance string
	// DriftSeverity is the severity of subtotal-lineitem-drift findings.
	// Business rules disagree on this one, so it stays configurable.
	DriftSeverity constants.Severity
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Templates: TemplatesConfig{
			Dir: getEnv("TEMPLATES_DIR", "./templates"),
		},
		LLM: LLMConfig{
			Model:       getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			Temperature: getEnvAsFloat32("ANTHROPIC_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("ANTHROPIC_TIMEOUT", 60*time.Second),
			MaxTokens:   getEnvAsInt("ANTHROPIC_MAX_TOKENS", 16000),
		},
		Pipeline: PipelineConfig{
			ExtractionRetries: getEnvAsInt("EXTRACTION_RETRIES", 3),
			RetryBackoff:      getEnvAsDuration("EXTRACTION_RETRY_BACKOFF", 2*time.Second),
			CallsPerSecond:    getEnvAsFloat64("CALL_BUDGET_PER_SECOND", 0.5),
			AdmissionTimeout:  getEnvAsDuration("CALL_ADMISSION_TIMEOUT", 2*time.Minute),
			BatchConcurrency:  getEnvAsInt("BATCH_CONCURRENCY", 4),
		},
		Validation: ValidateConfig{
			Tolerance:     getEnv("VALIDATE_TOLERANCE", "0.01"),
			DriftSeverity: constants.Severity(getEnv("VALIDATE_DRIFT_SEVERITY", string(constants.SeverityWarning))),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "ANTHROPIC_API_KEY is required", nil)
	}
	if c.Templates.Dir == "" {
		return NewAppError("CONFIG_ERROR", "TEMPLATES_DIR is required", nil)
	}
	if c.Pipeline.ExtractionRetries < 1 {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_RETRIES must be at least 1", nil)
	}
	switch c.Validation.DriftSeverity {
	case constants.SeverityError, constants.SeverityWarning:
	default:
		return NewAppError("CONFIG_ERROR", "VALIDATE_DRIFT_SEVERITY must be 'error' or 'warning'", nil)
	}
	return nil
}

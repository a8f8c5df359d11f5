package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-validator/constants"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"TEMPLATES_DIR", "EXTRACTION_RETRIES", "EXTRACTION_RETRY_BACKOFF",
		"CALL_BUDGET_PER_SECOND", "CALL_ADMISSION_TIMEOUT", "BATCH_CONCURRENCY",
		"VALIDATE_TOLERANCE", "VALIDATE_DRIFT_SEVERITY",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "./templates", cfg.Templates.Dir)
	assert.Equal(t, 3, cfg.Pipeline.ExtractionRetries)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.RetryBackoff)
	assert.Equal(t, 0.5, cfg.Pipeline.CallsPerSecond)
	assert.Equal(t, 2*time.Minute, cfg.Pipeline.AdmissionTimeout)
	assert.Equal(t, 4, cfg.Pipeline.BatchConcurrency)
	assert.Equal(t, "0.01", cfg.Validation.Tolerance)
	assert.Equal(t, constants.SeverityWarning, cfg.Validation.DriftSeverity)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("TEMPLATES_DIR", "/tmp/tpls")
	t.Setenv("EXTRACTION_RETRIES", "5")
	t.Setenv("VALIDATE_TOLERANCE", "0.05")
	t.Setenv("VALIDATE_DRIFT_SEVERITY", "error")

	cfg := LoadConfig()

	assert.Equal(t, "/tmp/tpls", cfg.Templates.Dir)
	assert.Equal(t, 5, cfg.Pipeline.ExtractionRetries)
	assert.Equal(t, "0.05", cfg.Validation.Tolerance)
	assert.Equal(t, constants.SeverityError, cfg.Validation.DriftSeverity)
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		cfg := LoadConfig()
		cfg.LLM.APIKey = "sk-test"
		return cfg
	}

	t.Run("valid configuration passes", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing API key rejected", func(t *testing.T) {
		cfg := valid()
		cfg.LLM.APIKey = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("empty templates dir rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Templates.Dir = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero retries rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Pipeline.ExtractionRetries = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown drift severity rejected", func(t *testing.T) {
		cfg := valid()
		cfg.Validation.DriftSeverity = "panic"
		assert.Error(t, cfg.Validate())
	})
}

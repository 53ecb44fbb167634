package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/ticket-intake/pkg/util/errorutil"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MODEL_ENDPOINT", "http://model.local/generate")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, LedgerBackendCSV, cfg.Ledger.Backend)
	assert.Equal(t, "tickets_log.csv", cfg.Ledger.Path)
	assert.Equal(t, 512, cfg.Model.MaxTokens)
	assert.InDelta(t, 0.1, cfg.Model.Temperature, 1e-9)
	assert.Equal(t, 60*time.Second, cfg.Model.Timeout())
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoadRejectsBadTemperature(t *testing.T) {
	t.Setenv("MODEL_TEMPERATURE", "warm")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Ledger: LedgerConfig{Backend: LedgerBackendCSV, Path: "tickets.csv"},
			Model:  ModelConfig{Endpoint: "http://model", MaxTokens: 64},
		}
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Ledger.Backend = "sqlite" }},
		{"postgres without dsn", func(c *Config) { c.Ledger.Backend = LedgerBackendPostgres }},
		{"csv without path", func(c *Config) { c.Ledger.Path = "" }},
		{"missing model endpoint", func(c *Config) { c.Model.Endpoint = "" }},
		{"zero max tokens", func(c *Config) { c.Model.MaxTokens = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeConfig))
		})
	}

	require.NoError(t, base().Validate())
}

func TestAuthConfigured(t *testing.T) {
	assert.False(t, AuthConfig{}.Configured())
	assert.True(t, AuthConfig{APIKey: "k"}.Configured())
	assert.True(t, AuthConfig{APIKeyBcrypt: "$2a$"}.Configured())
}

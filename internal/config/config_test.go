package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	for _, key := range []string{
		"APP_PORT", "APP_ENV", "MONGODB_URI", "TIMEZONE", "JWT_TTL", "LOW_STOCK_THRESHOLD",
		"GOOGLE_SHEETS_CREDENTIALS_PATH", "GOOGLE_SHEET_DATABASE_ID",
		"WHATSAPP_TOKEN", "WHATSAPP_PHONE_NUMBER_ID", "WHATSAPP_REPORT_RECIPIENT",
		"CORS_ALLOWED_ORIGINS", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		// Setenv restores the previous value on cleanup; unset so .env files can fill it.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, int64(10), cfg.Reporting.LowStockThreshold)
	assert.Equal(t, time.UTC, cfg.Reporting.Location())
	assert.False(t, cfg.Sheets.Enabled())
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Log.Development)
}

func TestLoadFromEnvFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "APP_PORT=9090\nAPP_ENV=development\nTIMEZONE=Africa/Conakry\nCORS_ALLOWED_ORIGINS=http://a.test, http://b.test\nLOW_STOCK_THRESHOLD=5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, int64(5), cfg.Reporting.LowStockThreshold)
	assert.Equal(t, "Africa/Conakry", cfg.Reporting.Location().String())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"missing jwt secret":   {"JWT_SECRET": ""},
		"bad ttl":              {"JWT_TTL": "soon"},
		"bad threshold":        {"LOW_STOCK_THRESHOLD": "ten"},
		"unknown timezone":     {"TIMEZONE": "Mars/Olympus"},
		"half sheets config":   {"GOOGLE_SHEETS_CREDENTIALS_PATH": "/tmp/creds.json"},
		"half whatsapp config": {"WHATSAPP_TOKEN": "token"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

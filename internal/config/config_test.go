package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("GATE_DB_PATH", filepath.Join(dir, "data", "test.db"))
	t.Setenv("GATE_CONFIG_FILE", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "9090", cfg.MetricsPort)
	assert.False(t, cfg.Security.EnableIPWhitelist)
	assert.False(t, cfg.Security.EnableGeofencing)
	assert.True(t, cfg.Security.EnableRequestLogging)
	assert.False(t, cfg.Security.LogDeniedRequests)
	assert.Equal(t, DefaultGeofencingAPIURL, cfg.Security.GeofencingAPIURL)
	assert.Empty(t, cfg.Security.IPWhitelist)
	assert.Empty(t, cfg.Security.CountryWhitelist)
	assert.Equal(t, "auth_token", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Len(t, cfg.Session.Secret, 64, "a random secret is generated when none is configured")
	assert.Equal(t, "@daily", cfg.AccessLog.RotateSchedule)
	assert.DirExists(t, filepath.Dir(cfg.DatabasePath))
}

func TestLoadFromEnv(t *testing.T) {
	isolate(t)
	t.Setenv("ENABLE_IP_WHITELIST", "true")
	t.Setenv("IP_WHITELIST", " 10.0.0.0/8, ,192.168.1.5 ")
	t.Setenv("ENABLE_GEOFENCING", "true")
	t.Setenv("COUNTRY_WHITELIST", "us, gb")
	t.Setenv("GEOFENCING_API_URL", "https://geo.example.com/json/")
	t.Setenv("ENABLE_REQUEST_LOGGING", "false")
	t.Setenv("GATE_LOG_DENIED_REQUESTS", "true")
	t.Setenv("GATE_SESSION_SECRET", "s3cret")
	t.Setenv("GATE_SESSION_TTL", "90m")
	t.Setenv("GATE_HTTP_PORT", "9000")
	t.Setenv("GATE_UPSTREAM_URL", "http://app:3000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Security.EnableIPWhitelist)
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.1.5"}, cfg.Security.IPWhitelist)
	assert.True(t, cfg.Security.EnableGeofencing)
	assert.Equal(t, []string{"US", "GB"}, cfg.Security.CountryWhitelist)
	assert.Equal(t, "https://geo.example.com/json", cfg.Security.GeofencingAPIURL)
	assert.False(t, cfg.Security.EnableRequestLogging)
	assert.True(t, cfg.Security.LogDeniedRequests)
	assert.Equal(t, "s3cret", cfg.Session.Secret)
	assert.Equal(t, 90*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, "http://app:3000", cfg.UpstreamURL)
}

func TestLoadBooleanSemantics(t *testing.T) {
	tests := []struct {
		value          string
		ipWhitelist    bool
		requestLogging bool
	}{
		{"true", true, true},
		{"TRUE", false, true},
		{"1", false, true},
		{"false", false, false},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run("value="+tt.value, func(t *testing.T) {
			isolate(t)
			t.Setenv("ENABLE_IP_WHITELIST", tt.value)
			t.Setenv("ENABLE_REQUEST_LOGGING", tt.value)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, tt.ipWhitelist, cfg.Security.EnableIPWhitelist)
			assert.Equal(t, tt.requestLogging, cfg.Security.EnableRequestLogging)
		})
	}
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "gatekeeper.yaml")
	content := `
environment: production
security:
  enable_geofencing: true
  country_whitelist: [de, fr]
  ip_whitelist:
    - 172.16.0.0/12
session:
  ttl: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("GATE_CONFIG_FILE", path)
	t.Setenv("COUNTRY_WHITELIST", "nl")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Security.EnableGeofencing)
	assert.Equal(t, []string{"NL"}, cfg.Security.CountryWhitelist)
	assert.Equal(t, []string{"172.16.0.0/12"}, cfg.Security.IPWhitelist)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing config file", func(t *testing.T) {
		dir := isolate(t)
		t.Setenv("GATE_CONFIG_FILE", filepath.Join(dir, "nope.yaml"))
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("invalid public route", func(t *testing.T) {
		isolate(t)
		t.Setenv("GATE_PUBLIC_ROUTES", "^/ok$,^/broken($")
		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidRoutePattern)
	})

	t.Run("invalid upstream url", func(t *testing.T) {
		isolate(t)
		t.Setenv("GATE_UPSTREAM_URL", "localhost:3000")
		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidUpstreamURL)
	})

	t.Run("invalid geo url", func(t *testing.T) {
		isolate(t)
		t.Setenv("GEOFENCING_API_URL", "not a url")
		_, err := Load()
		require.ErrorIs(t, err, ErrInvalidGeoAPIURL)
	})
}

func TestValidateReportsUnmatchableEntries(t *testing.T) {
	cfg := defaults()
	cfg.Security.EnableIPWhitelist = true
	cfg.Security.IPWhitelist = []string{"10.0.0.0/8", "10.0.0.0/33", "/24", "not-an-ip"}
	cfg.Security.CountryWhitelist = []string{"US", "ZZ"}

	problems := cfg.Validate()
	assert.Len(t, problems, 4)

	cfg.Security.IPWhitelist = nil
	cfg.Security.CountryWhitelist = nil
	problems = cfg.Validate()
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "all addresses are allowed")
}

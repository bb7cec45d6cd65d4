package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "", cfg.APIBaseURL)
	assert.Equal(t, int64(50), cfg.UploadMaxMB)
	assert.Equal(t, int64(50<<20), cfg.UploadMaxBytes())
	assert.Equal(t, "insightdash.db", cfg.StatePath)
	assert.Equal(t, StateSQLite, cfg.StateFormat)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("INSIGHTDASH_API_BASE_URL", "https://api.example.com")
	t.Setenv("INSIGHTDASH_UPLOAD_MAX_MB", "10")
	t.Setenv("INSIGHTDASH_STATE_FORMAT", "yaml")
	t.Setenv("INSIGHTDASH_STATE_PATH", "/tmp/state.yaml")
	t.Setenv("INSIGHTDASH_REQUEST_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes())
	assert.Equal(t, StateYAML, cfg.StateFormat)
	assert.Equal(t, "/tmp/state.yaml", cfg.StatePath)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestParseEnvError(t *testing.T) {
	var cfg Config
	t.Setenv("INSIGHTDASH_UPLOAD_MAX_MB", "fifty")

	err := ParseEnv(&cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	base := Config{UploadMaxMB: 50, StateFormat: StateSQLite}
	require.NoError(t, base.Validate())

	bad := base
	bad.StateFormat = "postgres"
	assert.ErrorContains(t, bad.Validate(), "state format")

	bad = base
	bad.UploadMaxMB = 0
	assert.ErrorContains(t, bad.Validate(), "upload max")

	bad = base
	bad.RequestTimeout = -time.Second
	assert.ErrorContains(t, bad.Validate(), "timeout")
}

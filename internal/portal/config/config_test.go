package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := readConfig(env(map[string]string{"WEB_URL": "https://portal.example.com"}))
	require.NoError(t, err)

	assert.Equal(t, "portal.example.com", cfg.WebURL.Host)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, 100*time.Millisecond, cfg.Debounce())
	assert.Equal(t, time.Minute, cfg.UploadTimeout())
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle())
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadSize())
	assert.Equal(t, "portal-editor", cfg.AWSBucketName)
	assert.Empty(t, cfg.LegacyMigrationSchedule)
	assert.Equal(t, ":2112", cfg.MetricsAddr)
	assert.Equal(t, 2560, cfg.ImageMaxSide)
	assert.Nil(t, cfg.LimiterURL)
	assert.False(t, cfg.SwaggerEnable)
}

func TestReadConfig_Values(t *testing.T) {
	cfg, err := readConfig(env(map[string]string{
		"WEB_URL":                   "https://portal.example.com",
		"EDITOR_DEBOUNCE_MS":        "250",
		"AWS_S3_USE_SSL":            "true",
		"LEGACY_MIGRATION_SCHEDULE": "@daily",
		"SESSION_IDLE_MIN":          "-5",
		"LIMITER_URL":               "http://limits.local:9000",
		"SWAGGER":                   "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce())
	assert.True(t, cfg.AWSUseSSL)
	assert.True(t, cfg.SwaggerEnable)
	assert.Equal(t, "@daily", cfg.LegacyMigrationSchedule)
	assert.Equal(t, 30, cfg.SessionIdleMin)
	require.NotNil(t, cfg.LimiterURL)
	assert.Equal(t, "limits.local:9000", cfg.LimiterURL.Host)
}

func TestReadConfig_Errors(t *testing.T) {
	_, err := readConfig(env(nil))
	assert.ErrorContains(t, err, "WEB_URL")

	_, err = readConfig(env(map[string]string{"WEB_URL": "https://x", "UPLOAD_TIMEOUT_SEC": "soon"}))
	assert.ErrorContains(t, err, "UPLOAD_TIMEOUT_SEC")
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "s****t", maskSecret("AWSSecretKey", "secret"))
	assert.Equal(t, "**", maskSecret("RemoteStorageToken", "ab"))
	assert.Equal(t, "visible", maskSecret("ListenAddr", "visible"))
}

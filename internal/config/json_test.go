package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"http_addr":            "www.example:9000",
		"storage_backend":      "file",
		"database_dsn":         "other.db",
		"data_dir":             "/var/lib/tagzilla",
		"session_ttl":          "12h",
		"otp_ttl":              "3m",
		"otp_send_burst":       2,
		"otp_send_interval":    1000000000,
		"otp_cache":            "redis",
		"redis_url":            "redis://cache:6379/1",
		"sms_provider":         "twilio",
		"twilio_account_sid":   "AC123",
		"picture_store":        "s3",
		"s3_bucket":            "bucket",
		"maintenance_interval": "10m",
		"log_format":           "text",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, BackendFile, cfg.StorageBackend)
		assert.Equal(t, "other.db", cfg.DatabaseDSN)
		assert.Equal(t, "/var/lib/tagzilla", cfg.DataDir)
		assert.Equal(t, 12*time.Hour, cfg.SessionTTL)
		assert.Equal(t, 3*time.Minute, cfg.OTPTTL)
		assert.Equal(t, 2, cfg.OTPSendBurst)
		assert.Equal(t, time.Second, cfg.OTPSendInterval)
		assert.Equal(t, "redis", cfg.OTPCache)
		assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
		assert.Equal(t, "twilio", cfg.SMSProvider)
		assert.Equal(t, "AC123", cfg.TwilioAccountSID)
		assert.Equal(t, "s3", cfg.PictureStore)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, 10*time.Minute, cfg.MaintenanceInterval)
		assert.Equal(t, "text", cfg.LogFormat)

		// keys absent from the file keep defaults
		assert.Equal(t, 5*time.Minute, cfg.OTPRetention)
		assert.Equal(t, "US", cfg.DefaultRegion)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			HTTPAddr:    "defaults:1234",
			DatabaseDSN: "vault.db",
			SessionTTL:  2 * time.Minute,
			S3Bucket:    "s3bucket",
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
		assert.Equal(t, "vault.db", cfg.DatabaseDSN)
		assert.Equal(t, 2*time.Minute, cfg.SessionTTL)
		assert.Equal(t, "s3bucket", cfg.S3Bucket)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}

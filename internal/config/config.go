// Package config handles runtime configuration: defaults, an optional JSON
// file, TAGZILLA_* environment variables and command-line flags, applied in
// that order.
package config

import "time"

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendFile     = "file"
	BackendMemory   = "memory"
)

// Config holds runtime settings for Tagzilla.
//
// Fields:
//   - StorageBackend / DatabaseDSN / DataDir: record store backend and its location.
//   - SessionTTL: lifetime of a session token.
//   - OTPTTL / OTPRetention: challenge validity and how long an expired
//     challenge stays in the cache so its expiry can still be reported.
//   - OTPSendBurst / OTPSendInterval: per-phone send rate limit.
//   - OTPCache / RedisURL: challenge cache ("memory" or "redis").
//   - SMSProvider and Twilio*: code delivery channel ("log" or "twilio").
//   - PictureStore / PictureDir / S3*: profile-picture storage ("local" or "s3").
//   - MaintenanceInterval: period of the session and challenge sweep; 0 disables it.
type Config struct {
	HTTPAddr       string `env:"TAGZILLA_HTTP_ADDR"`
	StorageBackend string `env:"TAGZILLA_STORAGE_BACKEND"`
	DatabaseDSN    string `env:"TAGZILLA_DATABASE_DSN"`
	DataDir        string `env:"TAGZILLA_DATA_DIR"`

	SessionTTL      time.Duration `env:"TAGZILLA_SESSION_TTL"`
	OTPTTL          time.Duration `env:"TAGZILLA_OTP_TTL"`
	OTPRetention    time.Duration `env:"TAGZILLA_OTP_RETENTION"`
	OTPSendBurst    int           `env:"TAGZILLA_OTP_SEND_BURST"`
	OTPSendInterval time.Duration `env:"TAGZILLA_OTP_SEND_INTERVAL"`
	DefaultRegion   string        `env:"TAGZILLA_DEFAULT_REGION"`

	OTPCache string `env:"TAGZILLA_OTP_CACHE"`
	RedisURL string `env:"TAGZILLA_REDIS_URL"`

	SMSProvider      string `env:"TAGZILLA_SMS_PROVIDER"`
	TwilioAccountSID string `env:"TAGZILLA_TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TAGZILLA_TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TAGZILLA_TWILIO_FROM"`
	TwilioBaseURL    string `env:"TAGZILLA_TWILIO_BASE_URL"`

	PictureStore   string `env:"TAGZILLA_PICTURE_STORE"`
	PictureDir     string `env:"TAGZILLA_PICTURE_DIR"`
	S3RootUser     string `env:"TAGZILLA_S3_ROOT_USER"`
	S3RootPassword string `env:"TAGZILLA_S3_ROOT_PASSWORD"`
	S3Bucket       string `env:"TAGZILLA_S3_BUCKET"`
	S3Region       string `env:"TAGZILLA_S3_REGION"`
	S3BaseEndpoint string `env:"TAGZILLA_S3_BASE_ENDPOINT"`

	MaintenanceInterval time.Duration `env:"TAGZILLA_MAINTENANCE_INTERVAL"`
	LogLevel            string        `env:"TAGZILLA_LOG_LEVEL"`
	LogFormat           string        `env:"TAGZILLA_LOG_FORMAT"`
}

// LoadDefaults populates Config with development defaults.
// NOTE: the S3 credentials match a local MinIO and must be overridden elsewhere.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":8080"
	c.StorageBackend = BackendSQLite
	c.DatabaseDSN = "tagzilla.db"
	c.DataDir = "data"

	c.SessionTTL = 24 * time.Hour
	c.OTPTTL = 5 * time.Minute
	c.OTPRetention = 5 * time.Minute
	c.OTPSendBurst = 5
	c.OTPSendInterval = 30 * time.Second
	c.DefaultRegion = "US"

	c.OTPCache = "memory"
	c.RedisURL = "redis://127.0.0.1:6379/0"

	c.SMSProvider = "log"
	c.TwilioBaseURL = "https://api.twilio.com"

	c.PictureStore = "local"
	c.PictureDir = "pictures"
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = "tagzilla"
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"

	c.MaintenanceInterval = time.Hour
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/tagzilla/internal/flagx"
	"github.com/dmitrijs2005/tagzilla/internal/timex"
)

// JsonConfig is the on-disk shape of the config file. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
type JsonConfig struct {
	HTTPAddr       string `json:"http_addr"`
	StorageBackend string `json:"storage_backend"`
	DatabaseDSN    string `json:"database_dsn"`
	DataDir        string `json:"data_dir"`

	SessionTTL      timex.Duration `json:"session_ttl"`
	OTPTTL          timex.Duration `json:"otp_ttl"`
	OTPRetention    timex.Duration `json:"otp_retention"`
	OTPSendBurst    int            `json:"otp_send_burst"`
	OTPSendInterval timex.Duration `json:"otp_send_interval"`
	DefaultRegion   string         `json:"default_region"`

	OTPCache string `json:"otp_cache"`
	RedisURL string `json:"redis_url"`

	SMSProvider      string `json:"sms_provider"`
	TwilioAccountSID string `json:"twilio_account_sid"`
	TwilioAuthToken  string `json:"twilio_auth_token"`
	TwilioFrom       string `json:"twilio_from"`
	TwilioBaseURL    string `json:"twilio_base_url"`

	PictureStore   string `json:"picture_store"`
	PictureDir     string `json:"picture_dir"`
	S3RootUser     string `json:"s3_root_user"`
	S3RootPassword string `json:"s3_root_password"`
	S3Bucket       string `json:"s3_bucket"`
	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	MaintenanceInterval timex.Duration `json:"maintenance_interval"`
	LogLevel            string         `json:"log_level"`
	LogFormat           string         `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		HTTPAddr:            c.HTTPAddr,
		StorageBackend:      c.StorageBackend,
		DatabaseDSN:         c.DatabaseDSN,
		DataDir:             c.DataDir,
		SessionTTL:          timex.Duration{Duration: c.SessionTTL},
		OTPTTL:              timex.Duration{Duration: c.OTPTTL},
		OTPRetention:        timex.Duration{Duration: c.OTPRetention},
		OTPSendBurst:        c.OTPSendBurst,
		OTPSendInterval:     timex.Duration{Duration: c.OTPSendInterval},
		DefaultRegion:       c.DefaultRegion,
		OTPCache:            c.OTPCache,
		RedisURL:            c.RedisURL,
		SMSProvider:         c.SMSProvider,
		TwilioAccountSID:    c.TwilioAccountSID,
		TwilioAuthToken:     c.TwilioAuthToken,
		TwilioFrom:          c.TwilioFrom,
		TwilioBaseURL:       c.TwilioBaseURL,
		PictureStore:        c.PictureStore,
		PictureDir:          c.PictureDir,
		S3RootUser:          c.S3RootUser,
		S3RootPassword:      c.S3RootPassword,
		S3Bucket:            c.S3Bucket,
		S3Region:            c.S3Region,
		S3BaseEndpoint:      c.S3BaseEndpoint,
		MaintenanceInterval: timex.Duration{Duration: c.MaintenanceInterval},
		LogLevel:            c.LogLevel,
		LogFormat:           c.LogFormat,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.HTTPAddr = j.HTTPAddr
	c.StorageBackend = j.StorageBackend
	c.DatabaseDSN = j.DatabaseDSN
	c.DataDir = j.DataDir
	c.SessionTTL = j.SessionTTL.Duration
	c.OTPTTL = j.OTPTTL.Duration
	c.OTPRetention = j.OTPRetention.Duration
	c.OTPSendBurst = j.OTPSendBurst
	c.OTPSendInterval = j.OTPSendInterval.Duration
	c.DefaultRegion = j.DefaultRegion
	c.OTPCache = j.OTPCache
	c.RedisURL = j.RedisURL
	c.SMSProvider = j.SMSProvider
	c.TwilioAccountSID = j.TwilioAccountSID
	c.TwilioAuthToken = j.TwilioAuthToken
	c.TwilioFrom = j.TwilioFrom
	c.TwilioBaseURL = j.TwilioBaseURL
	c.PictureStore = j.PictureStore
	c.PictureDir = j.PictureDir
	c.S3RootUser = j.S3RootUser
	c.S3RootPassword = j.S3RootPassword
	c.S3Bucket = j.S3Bucket
	c.S3Region = j.S3Region
	c.S3BaseEndpoint = j.S3BaseEndpoint
	c.MaintenanceInterval = j.MaintenanceInterval.Duration
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Keys missing from the file keep their current values.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

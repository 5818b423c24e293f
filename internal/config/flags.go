package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/tagzilla/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-b string   storage backend: sqlite, postgres, file, memory
//	-d string   database DSN (sqlite file or postgres URL)
//	-D string   data directory for the file backend
//	-t int      session validity, minutes
//	-o int      OTP validity, minutes
//	-m int      maintenance interval, minutes (0 disables)
//	-r string   Redis URL; implies the redis OTP cache
//	-l string   log level
//	-f string   log format: json or text
//
// Duration flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-b", "-d", "-D", "-t", "-o", "-m", "-r", "-l", "-f"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.StorageBackend, "b", config.StorageBackend, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DataDir, "D", config.DataDir, "data directory")

	sessionTTL := fs.Int("t", int(config.SessionTTL.Minutes()), "session validity (in minutes)")
	otpTTL := fs.Int("o", int(config.OTPTTL.Minutes()), "otp validity (in minutes)")
	maintenance := fs.Int("m", int(config.MaintenanceInterval.Minutes()), "maintenance interval (in minutes)")

	redisURL := fs.String("r", "", "redis url")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.LogFormat, "f", config.LogFormat, "log format")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// minute flags only override when given, so finer JSON/env values survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTTL = time.Duration(*sessionTTL) * time.Minute
		case "o":
			config.OTPTTL = time.Duration(*otpTTL) * time.Minute
		case "m":
			config.MaintenanceInterval = time.Duration(*maintenance) * time.Minute
		}
	})

	if *redisURL != "" {
		config.RedisURL = *redisURL
		config.OTPCache = "redis"
	}
}

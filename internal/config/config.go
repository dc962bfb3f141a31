package config

import (
	"os"
)

// App is the binary name used in usage and log output.
const App = "trailkeeper"

// DefaultRegion is the home region for S3 and STS calls when neither the
// environment nor the command line names one.
const DefaultRegion = "us-east-1"

// Config carries everything a run needs. Load supplies defaults from the
// environment; command-line flags bound in main overlay them.
type Config struct {
	Bucket      string // target S3 bucket (required)
	Prefix      string // key prefix for the log path in the bucket
	Region      string // home region for S3 and STS calls
	Credentials string // AWS credentials file; empty means the SDK default chain
	Regions     string // comma-separated region override; empty means all CloudTrail regions
	LogLevel    string // debug|info|warn|error
	Verify      bool   // check for delivered log files after provisioning
	Debug       bool   // force debug logging
}

// Load reads configuration defaults from the environment.
func Load() *Config {
	return &Config{
		Region:      getEnv("AWS_REGION", DefaultRegion),
		Credentials: getEnv("TRAILKEEPER_CREDENTIALS", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

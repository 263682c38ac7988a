package config

import "github.com/runmux/runmux/util/conf"

// Config is the application configuration, layered from defaults, config
// file, .env file, environment variables and command line flags.
type Config struct {
	// LogLevel is the log level for the application
	LogLevel string `conf:"log_level"`

	// LogFormat is the log format for the application
	LogFormat string `conf:"log_format"`

	// Policy is the restart policy applied when a worker terminates.
	// One of: none, kill, kill-on-error, restart-on-error.
	Policy string `conf:"policy"`

	// KillTimeout is the grace period, in seconds, between SIGTERM and
	// SIGKILL when cancelling workers.
	KillTimeout int `conf:"kill_timeout"`

	// Verbose also prints SYSTEM lines for process start and exit
	Verbose bool `conf:"verbose"`

	// StreamFlags annotates output lines with (o)/(e) stream markers
	StreamFlags bool `conf:"stream_flags"`
}

// DefaultConfig holds the configuration defaults.
var DefaultConfig = conf.DefaultConfig{
	"log_level":    "info",
	"log_format":   "production",
	"policy":       "none",
	"kill_timeout": 5,
}

// Package config provides user configuration for the bit command line.
package config

import "time"

// Default configuration values for bit.
const (
	// AppName names the configuration and state directories.
	AppName = "bit"

	// EnvPrefix prefixes environment overrides, e.g. BIT_LOGGING_LEVEL.
	EnvPrefix = "BIT"

	// FileName is the configuration file name inside ConfigDir.
	FileName = "config.yaml"

	// DefaultLogLevel is the threshold for normal and louder messages.
	DefaultLogLevel = "normal"

	// DefaultFormat is the output format for status and ls.
	DefaultFormat = "pretty"

	// DefaultLogMaxSize is the log file size that triggers rotation.
	DefaultLogMaxSize = "5MB"

	// DefaultLogMaxBackups is the number of rotated log files kept.
	DefaultLogMaxBackups = 3

	// DefaultWatchDebounce is the quiet period before status --watch re-runs.
	DefaultWatchDebounce = 250 * time.Millisecond
)

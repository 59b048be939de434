// Package config provides configuration management for the sqlcst CLI.
//
// Values are layered, lowest priority first: built-in defaults, the
// sqlcst.yaml file, SQLCST_* environment variables and command-line flags
// that were explicitly set.
package config

import (
	"time"
)

// Default configuration values.
const (
	DefaultMaxVersions  = 6
	DefaultSkipWindow   = 3
	DefaultParseTimeout = 30 * time.Second
	DefaultEncoding     = "utf-8"
	DefaultLogLevel     = "warn"
	DefaultOutput       = "auto" // Auto-detect: TTY=text, non-TTY=text without color
	DefaultColor        = "auto"
)

// Output formats.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
)

// Color modes.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// Config holds all CLI configuration options.
type Config struct {
	// Grammar is the path of a grammar artifact. Empty selects the built-in
	// postgres rule set.
	Grammar      string        `koanf:"grammar"`
	MaxVersions  int           `koanf:"max_versions"`
	SkipWindow   int           `koanf:"skip_window"`
	ParseTimeout time.Duration `koanf:"parse_timeout"`
	Encoding     string        `koanf:"encoding"`
	LogLevel     string        `koanf:"log_level"`
	Verbose      bool          `koanf:"verbose"`
	OutputFormat string        `koanf:"output"`
	Color        string        `koanf:"color"`
	// Workers bounds concurrent file parses. Zero means one per CPU.
	Workers int `koanf:"workers"`
}

// Default returns a Config with every field at its default.
func Default() *Config {
	return &Config{
		MaxVersions:  DefaultMaxVersions,
		SkipWindow:   DefaultSkipWindow,
		ParseTimeout: DefaultParseTimeout,
		Encoding:     DefaultEncoding,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
		Color:        DefaultColor,
	}
}

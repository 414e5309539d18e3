package config

import (
	"github.com/cockroachdb/errors"

	"blackguard/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Validate checks the level and format names.
func (c *LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return err
	}
	switch c.Format {
	case "", "text", "json":
		return nil
	default:
		return errors.Newf("invalid logging.format %q (valid: text, json)", c.Format)
	}
}

// Logger returns the logging setup this section describes, at debug level when debug is set.
func (c *LoggingConfig) Logger(debug bool) logging.Config {
	level := c.Level
	if debug {
		level = "debug"
	}
	return logging.Config{Level: level, JSON: c.Format == "json"}
}

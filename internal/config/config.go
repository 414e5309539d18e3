package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the working directory.
const FileName = ".blackguard.yaml"

// Config holds all blackguard configuration.
type Config struct {
	// External formatter
	Black BlackConfig `yaml:"black"`

	// File discovery and dispatch
	Runner RunnerConfig `yaml:"runner"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// BlackConfig configures the black executable.
type BlackConfig struct {
	Binary  string `yaml:"binary"`
	Timeout string `yaml:"timeout"`
}

// RunnerConfig configures how files are found and processed.
type RunnerConfig struct {
	// More files than this are processed in parallel.
	ParallelThreshold int `yaml:"parallel_threshold"`

	// Workers bounds parallel processing. 0 means one less than the CPU count.
	Workers int `yaml:"workers"`

	// Exclude lists directory names skipped during discovery.
	Exclude []string `yaml:"exclude"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Black: BlackConfig{
			Binary:  "black",
			Timeout: "60s",
		},
		Runner: RunnerConfig{
			ParallelThreshold: 5,
			Workers:           0,
			Exclude:           []string{".git", ".hg", ".venv", "venv", "__pycache__", "build", "dist"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults. Environment
// overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config %s", path)
		}
	case os.IsNotExist(err):
		// defaults
	default:
		return nil, errors.Wrap(err, "failed to read config")
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if binary := os.Getenv("BLACKGUARD_BLACK"); binary != "" {
		c.Black.Binary = binary
	}
	if workers := os.Getenv("BLACKGUARD_WORKERS"); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return errors.Wrapf(err, "BLACKGUARD_WORKERS=%q", workers)
		}
		c.Runner.Workers = n
	}
	if level := os.Getenv("BLACKGUARD_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	return nil
}

// GetBlackTimeout returns the black timeout as a duration.
func (c *Config) GetBlackTimeout() time.Duration {
	d, err := time.ParseDuration(c.Black.Timeout)
	if err != nil || d <= 0 {
		return 60 * time.Second
	}
	return d
}

// GetWorkers returns the number of parallel workers, at least one.
func (c *Config) GetWorkers() int {
	if c.Runner.Workers > 0 {
		return c.Runner.Workers
	}
	return max(1, runtime.NumCPU()-1)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Black.Binary == "" {
		return errors.New("black.binary is empty")
	}
	if d, err := time.ParseDuration(c.Black.Timeout); err != nil {
		return errors.Wrapf(err, "invalid black.timeout %q", c.Black.Timeout)
	} else if d <= 0 {
		return errors.Newf("black.timeout must be positive, got %s", d)
	}
	if c.Runner.Workers < 0 {
		return errors.Newf("runner.workers must not be negative, got %d", c.Runner.Workers)
	}
	if c.Runner.ParallelThreshold < 0 {
		return errors.Newf("runner.parallel_threshold must not be negative, got %d", c.Runner.ParallelThreshold)
	}
	return c.Logging.Validate()
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Default run settings.
const (
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
	DefaultMaxCycleDepth   = 5
	DefaultShutdownTimeout = 5 * time.Second
)

// Duration wraps time.Duration so it can be written as "5s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Settings are the run settings read from a TOML file. Command-line flags
// override them.
type Settings struct {
	LogLevel        string   `toml:"log_level"`
	LogFormat       string   `toml:"log_format"`
	Definitions     []string `toml:"definitions"`
	MaxCycleDepth   int      `toml:"max_cycle_depth"`
	HealthcheckPort int      `toml:"healthcheck_port"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// EnvPrefix enables importing parameters from environment variables named
	// <EnvPrefix><BIND>.
	EnvPrefix string `toml:"env_prefix"`
	// Values are parameter values applied before command-line values.
	Values map[string]string `toml:"values"`
}

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads settings from path. An empty path returns the defaults;
// a path that does not exist is an error.
func LoadSettings(path string) (*Settings, error) {
	if path == "" {
		return DefaultSettings(), nil
	}
	path = os.ExpandEnv(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("settings file not found: %s", path)
	}

	var s Settings
	meta, err := toml.DecodeFile(path, &s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown settings in %s: %v", path, undecoded)
	}
	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return &s, nil
}

func (s *Settings) applyDefaults() {
	if s.LogLevel == "" {
		s.LogLevel = DefaultLogLevel
	}
	if s.LogFormat == "" {
		s.LogFormat = DefaultLogFormat
	}
	if s.MaxCycleDepth == 0 {
		s.MaxCycleDepth = DefaultMaxCycleDepth
	}
	if s.ShutdownTimeout.Duration == 0 {
		s.ShutdownTimeout.Duration = DefaultShutdownTimeout
	}
	if s.Values == nil {
		s.Values = make(map[string]string)
	}
}

// Validate checks the settings for values that can never work.
func (s *Settings) Validate() error {
	if s.MaxCycleDepth < 0 {
		return fmt.Errorf("max_cycle_depth must not be negative, got %d", s.MaxCycleDepth)
	}
	if s.HealthcheckPort < 0 || s.HealthcheckPort > 65535 {
		return fmt.Errorf("healthcheck_port must be between 0 and 65535, got %d", s.HealthcheckPort)
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json', got %q", s.LogFormat)
	}
	return nil
}

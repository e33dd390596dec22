package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vk/cmdgrid/internal/config"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Definitions are .hcl files or directories to load.
	Definitions []string
	// Commands are the commands requested on the command line.
	Commands []string
	// Values are "name=value" assignments from the command line.
	Values []string
	// FileValues come from the settings file and only fill parameters that
	// are still unset.
	FileValues map[string]string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	MaxCycleDepth   int
	EnvPrefix       string
	ShutdownTimeout time.Duration
}

// ConfigFromSettings seeds a Config with values read from a settings file.
func ConfigFromSettings(s *config.Settings) Config {
	return Config{
		Definitions:     append([]string(nil), s.Definitions...),
		FileValues:      s.Values,
		LogFormat:       s.LogFormat,
		LogLevel:        s.LogLevel,
		HealthcheckPort: s.HealthcheckPort,
		MaxCycleDepth:   s.MaxCycleDepth,
		EnvPrefix:       s.EnvPrefix,
		ShutdownTimeout: s.ShutdownTimeout.Duration,
	}
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Definitions) == 0 {
		return nil, errors.New("at least one definitions path is required")
	}
	for _, kv := range cfg.Values {
		if _, _, err := SplitAssignment(kv); err != nil {
			return nil, err
		}
	}
	if cfg.MaxCycleDepth < 0 {
		return nil, fmt.Errorf("max cycle depth must not be negative, got %d", cfg.MaxCycleDepth)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = config.DefaultShutdownTimeout
	}
	return &cfg, nil
}

// SplitAssignment splits "name=value" into its parts.
func SplitAssignment(kv string) (string, string, error) {
	name, value, ok := strings.Cut(kv, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", "", fmt.Errorf("invalid value %q: expected name=value", kv)
	}
	return name, value, nil
}

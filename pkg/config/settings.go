package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aerynos/carve/pkg/sizing"
)

// Settings is the CLI configuration file (YAML). It controls logging,
// where strategy documents are loaded from, where the report database
// lives, and the disk inventory the in-memory backend is seeded with.
type Settings struct {
	// LogLevel and LogFormat configure logging (see telemetry.LoggingConfig).
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// StrategyPaths are files or directories of strategy documents.
	StrategyPaths []string `yaml:"strategy_paths"`

	// Database is the report database configuration.
	Database DatabaseSettings `yaml:"database"`

	// Metrics configures the optional Prometheus endpoint.
	Metrics MetricsSettings `yaml:"metrics"`

	// Disks is the simulated disk inventory for planning and rehearsal.
	Disks []DiskSettings `yaml:"disks"`
}

// DatabaseSettings configures the report store.
type DatabaseSettings struct {
	// Path is the SQLite database file. Empty disables report persistence.
	Path string `yaml:"path"`
}

// MetricsSettings configures the metrics endpoint.
type MetricsSettings struct {
	Enabled       bool   `yaml:"enabled"`
	ListenAddress string `yaml:"listen_address"`
}

// DiskSettings declares one simulated disk.
type DiskSettings struct {
	Name string `yaml:"name"`
	Size string `yaml:"size"`
}

// DefaultSettings returns the settings used when no config file exists.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// LoadSettings reads a YAML settings file. A missing file yields the
// defaults; a malformed file is an error.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return settings, nil
}

// Validate checks the settings.
func (s *Settings) Validate() error {
	for i, disk := range s.Disks {
		if disk.Name == "" {
			return fmt.Errorf("disk %d has no name", i)
		}
		if _, err := sizing.ParseQuantity(disk.Size); err != nil {
			return fmt.Errorf("disk %q: %w", disk.Name, err)
		}
	}
	if s.Metrics.Enabled && s.Metrics.ListenAddress == "" {
		return fmt.Errorf("metrics listen_address is required when metrics are enabled")
	}
	return nil
}

package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uav-lab/teststand2-buddy/internal/protocol"
	"github.com/uav-lab/teststand2-buddy/internal/serialport"
)

// Config represents the main application configuration
type Config struct {
	Settings SettingsConfig `yaml:"settings"`
	Serial   SerialConfig   `yaml:"serial"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Chart    ChartConfig    `yaml:"chart"`
	Storage  StorageConfig  `yaml:"storage"`
}

// SettingsConfig represents global application settings
type SettingsConfig struct {
	LogLevel string `yaml:"logLevel"`
}

// SerialConfig represents the controller link settings. Port may be left
// empty to pick from the enumerated ports at startup.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baudRate"`
}

// TimeoutsConfig carries the per-command response ceilings in seconds.
type TimeoutsConfig struct {
	SysInitSeconds int `yaml:"sysInitSeconds"`
	MeasureSeconds int `yaml:"measureSeconds"`
}

// ChartConfig represents chart rendering settings
type ChartConfig struct {
	FontFile string `yaml:"fontFile"`
}

// StorageConfig represents persistence settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	IndexFile     string `yaml:"indexFile"`
}

// NewConfig returns a configuration with the stand defaults.
func NewConfig() *Config {
	return &Config{
		Settings: SettingsConfig{LogLevel: "info"},
		Serial:   SerialConfig{BaudRate: serialport.DefaultBaud},
		Timeouts: TimeoutsConfig{
			SysInitSeconds: int(protocol.DefaultSysInitTimeout / time.Second),
			MeasureSeconds: int(protocol.DefaultMeasureTimeout / time.Second),
		},
		Storage: StorageConfig{IndexFile: "index.sqlite"},
	}
}

// LoadConfig reads the YAML configuration file at path on top of the
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	config := NewConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Serial.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", config.Serial.BaudRate)
	}
	if config.Timeouts.SysInitSeconds <= 0 || config.Timeouts.MeasureSeconds <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}
	return config, nil
}

// Level parses the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Settings.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Settings.LogLevel, err)
	}
	return level, nil
}

// SysInitTimeout returns the initialization response ceiling.
func (c *Config) SysInitTimeout() time.Duration {
	return time.Duration(c.Timeouts.SysInitSeconds) * time.Second
}

// MeasureTimeout returns the measurement response ceiling.
func (c *Config) MeasureTimeout() time.Duration {
	return time.Duration(c.Timeouts.MeasureSeconds) * time.Second
}

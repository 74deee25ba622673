package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	DefaultRate     float64      `yaml:"default_rate,omitempty"`      // Cost per kWh when the upload carries no costs
	CO2Factor       float64      `yaml:"co2_factor,omitempty"`        // kg CO2 per kWh
	PeakStartHour   int          `yaml:"peak_start_hour,omitempty"`   // Start of the peak-hours cost bucket (inclusive)
	PeakEndHour     int          `yaml:"peak_end_hour,omitempty"`     // End of the peak-hours cost bucket (exclusive)
	DefaultHour     int          `yaml:"default_hour,omitempty"`      // Hour assumed for readings without a time of day
	PeakWindowHours int          `yaml:"peak_window_hours,omitempty"` // Width of the peak usage window insight
	TopDays         int          `yaml:"top_days,omitempty"`          // How many expensive days to surface
	ShiftFraction   float64      `yaml:"shift_fraction,omitempty"`    // Fraction of peak-window usage considered shiftable
	SQLRowLimit     int          `yaml:"sql_row_limit,omitempty"`     // Hard cap on sandbox result rows
	SQLTimeoutSecs  int          `yaml:"sql_timeout_seconds,omitempty"`
	OpenAI          OpenAIConfig `yaml:"openai,omitempty"`
	MQTT            MQTTConfig   `yaml:"mqtt,omitempty"`
}

// OpenAIConfig holds language model provider settings
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	Model   string `yaml:"model,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// MQTTConfig holds broker settings for summary publishing
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"` // e.g., "localhost:1883"
	Username    string `yaml:"username,omitempty"`
	Password    string `yaml:"password,omitempty"`
	TopicPrefix string `yaml:"topic_prefix,omitempty"`
}

// Load reads the config file and applies defaults. A missing file is not an
// error and yields the defaults.
func Load(configPath string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Save writes the config to file
func Save(configPath string, cfg *Config) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// DefaultConfigPath returns the default config file path (local directory)
func DefaultConfigPath() string {
	return "config.yaml"
}

// Default returns a config with all defaults applied
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.DefaultRate <= 0 {
		c.DefaultRate = 0.32
	}
	if c.CO2Factor <= 0 {
		c.CO2Factor = 0.45
	}
	if c.PeakStartHour <= 0 {
		c.PeakStartHour = 17
	}
	if c.PeakEndHour <= 0 {
		c.PeakEndHour = 21
	}
	if c.DefaultHour <= 0 {
		c.DefaultHour = 12
	}
	if c.PeakWindowHours <= 0 {
		c.PeakWindowHours = 3
	}
	if c.TopDays <= 0 {
		c.TopDays = 5
	}
	if c.ShiftFraction <= 0 {
		c.ShiftFraction = 0.3
	}
	if c.SQLRowLimit <= 0 {
		c.SQLRowLimit = 200
	}
	if c.SQLTimeoutSecs <= 0 {
		c.SQLTimeoutSecs = 5
	}
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if c.OpenAI.APIKey == "" {
		c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "energyinsight"
	}
}

// SQLTimeout returns the sandbox execution budget as a duration
func (c *Config) SQLTimeout() time.Duration {
	return time.Duration(c.SQLTimeoutSecs) * time.Second
}

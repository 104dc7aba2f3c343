package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// API variant names accepted in the config file.
const (
	APIViaggiaTreno = "viaggiatreno"
	APILeFrecce     = "lefrecce"
)

// WatchConfig describes the route the watch command polls.
type WatchConfig struct {
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	Departure string `yaml:"departure"` // e.g. "08:15"
	Interval  string `yaml:"interval"`  // e.g. "5m"
}

// DepartureTime returns the configured departure on today's date.
func (w WatchConfig) DepartureTime() (time.Time, error) {
	parsed, err := time.Parse("15:04", w.Departure)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid departure time %q: %w", w.Departure, err)
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.Local), nil
}

// PollInterval returns the configured polling interval.
func (w WatchConfig) PollInterval() (time.Duration, error) {
	interval, err := time.ParseDuration(w.Interval)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q: %w", w.Interval, err)
	}
	return interval, nil
}

// Validate checks the fields the watch command needs. The section is
// optional for every other command.
func (w WatchConfig) Validate() error {
	if w.From == "" || w.To == "" || w.Departure == "" {
		return fmt.Errorf("watch: from, to, and departure are required")
	}
	if _, err := w.DepartureTime(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	if _, err := w.PollInterval(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return nil
}

type Config struct {
	API                string      `yaml:"api"`
	RequestTimeout     string      `yaml:"request_timeout"`
	RecentStationsPath string      `yaml:"recent_stations_path"`
	Watch              WatchConfig `yaml:"watch"`
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() (time.Duration, error) {
	timeout, err := time.ParseDuration(c.RequestTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid request_timeout %q: %w", c.RequestTimeout, err)
	}
	return timeout, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	recentPath := "recent_stations.yaml"
	if configDir, err := os.UserConfigDir(); err == nil {
		recentPath = filepath.Join(configDir, "binari", "recent_stations.yaml")
	}
	return &Config{
		API:                APIViaggiaTreno,
		RequestTimeout:     "15s",
		RecentStationsPath: recentPath,
		Watch: WatchConfig{
			Interval: "5m",
		},
	}
}

// Load reads the config file at path. A missing file yields the
// defaults; the tool must be usable with zero configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.API != APIViaggiaTreno && c.API != APILeFrecce {
		return fmt.Errorf("api must be %q or %q, got %q", APIViaggiaTreno, APILeFrecce, c.API)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.RecentStationsPath == "" {
		return fmt.Errorf("recent_stations_path is required")
	}
	// The watch section is validated by the watch command; only check
	// it here when the user started filling it in.
	if c.Watch.From != "" || c.Watch.To != "" || c.Watch.Departure != "" {
		if err := c.Watch.Validate(); err != nil {
			return err
		}
	}
	return nil
}

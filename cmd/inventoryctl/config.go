package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-inventory/components/inventory"
	"github.com/goliatone/go-inventory/pkg/gateway"
)

// Config is the file backed client configuration. Flags and INVENTORY_*
// variables override values read from the file.
type Config struct {
	BaseURL   string        `yaml:"base_url"`
	APIPrefix string        `yaml:"api_prefix"`
	Shape     string        `yaml:"shape"`
	Timeout   time.Duration `yaml:"timeout"`
	StatePath string        `yaml:"state_path"`
	Mock      bool          `yaml:"mock"`
	Log       LogConfig     `yaml:"log"`
	Chart     ChartConfig   `yaml:"chart"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// LogConfig selects the zap level and encoder.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ChartConfig sizes the category report chart.
type ChartConfig struct {
	Title  string `yaml:"title"`
	Theme  string `yaml:"theme"`
	Width  string `yaml:"width"`
	Height string `yaml:"height"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("inventoryctl: read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("inventoryctl: parse config %s: %w", path, err)
	}
	return cfg, nil
}

// merge applies the global flags that were set over the file values.
func (c *Config) merge(g globals) {
	if g.BaseURL != "" {
		c.BaseURL = g.BaseURL
	}
	if g.APIPrefix != "" {
		c.APIPrefix = g.APIPrefix
	}
	if g.Shape != "" {
		c.Shape = g.Shape
	}
	if g.Timeout > 0 {
		c.Timeout = g.Timeout
	}
	if g.State != "" {
		c.StatePath = g.State
	}
	if g.Mock {
		c.Mock = true
	}
	if g.LogLevel != "" {
		c.Log.Level = g.LogLevel
	}
	if g.LogFormat != "" {
		c.Log.Format = g.LogFormat
	}
}

func (c *Config) normalize() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.APIPrefix == "" {
		c.APIPrefix = gateway.DefaultAPIPrefix
	}
	shape, err := inventory.ParseShapeStrategy(c.Shape)
	if err != nil {
		return err
	}
	c.Shape = string(shape)
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Second
	}
	if c.StatePath == "" {
		c.StatePath = defaultStatePath()
	}
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	switch c.Log.Format {
	case "":
		c.Log.Format = "console"
	case "console", "json":
	default:
		return fmt.Errorf("inventoryctl: unknown log format %q", c.Log.Format)
	}
	if c.Chart.Title == "" {
		c.Chart.Title = "Stock by category"
	}
	if !c.Mock && c.BaseURL == "" {
		return errors.New("inventoryctl: base url is required (set --base-url, INVENTORY_BASE_URL or base_url, or use --mock)")
	}
	return nil
}

func (c Config) chartOptions() inventory.ChartOptions {
	return inventory.ChartOptions{
		Title:  c.Chart.Title,
		Theme:  c.Chart.Theme,
		Width:  c.Chart.Width,
		Height: c.Chart.Height,
	}
}

func defaultStatePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "inventoryctl", "state.json")
}

func defaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return ""
	}
	return filepath.Join(dir, "inventoryctl", "config.yaml")
}

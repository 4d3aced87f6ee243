// Package config loads sheetsync settings from ~/.config/sheetsync/config.json,
// then applies SHEETSYNC_* environment overrides (a .env file in the
// working directory is read first).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	xdgAppName = "sheetsync"
	configFile = "config.json"
	envPrefix  = "SHEETSYNC_"
)

// Duration is a time.Duration that reads and writes as "10s" in JSON.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "0" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("failed to parse duration '%s': %w", s, err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Duration.String() + `"`), nil
}

type CacheConfig struct {
	Backend string `json:"backend"` // file | sqlite | memory
	Path    string `json:"path,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

type Config struct {
	SpreadsheetID   string        `json:"spreadsheet_id"`
	APIKey          string        `json:"api_key,omitempty"`
	TimerSheet      string        `json:"timer_sheet"`
	TimerColumns    string        `json:"timer_columns"`
	CalendarSheet   string        `json:"calendar_sheet"`
	CalendarColumns string        `json:"calendar_columns"`
	WebAppURL       string        `json:"web_app_url"`
	CallbackTimeout Duration      `json:"callback_timeout"`
	HTTPTimeout     Duration      `json:"http_timeout"`
	Cache           CacheConfig   `json:"cache"`
	Logging         LoggingConfig `json:"logging"`
	Addr            string        `json:"addr"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		TimerSheet:      "Sheet1",
		TimerColumns:    "A:E",
		CalendarSheet:   "Sheet2",
		CalendarColumns: "A:Z",
		CallbackTimeout: Duration{10 * time.Second},
		HTTPTimeout:     Duration{30 * time.Second},
		Cache:           CacheConfig{Backend: "file"},
		Logging:         LoggingConfig{Level: "info", Format: "text"},
		Addr:            "127.0.0.1:8080",
	}
}

// TimerRange is the A1 range holding timer records, e.g. "Sheet1!A:E".
func (c *Config) TimerRange() string {
	return c.TimerSheet + "!" + c.TimerColumns
}

// CalendarRange is the A1 range holding the week calendar.
func (c *Config) CalendarRange() string {
	return c.CalendarSheet + "!" + c.CalendarColumns
}

func GetConfigPath() (string, error) {
	xdgHome, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(xdgHome, ".config", xdgAppName, configFile), nil
}

// Load reads path (the default location when empty). A missing file
// yields the defaults. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

func Save(cfg *Config, path string) error {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file for writing: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cfg)
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "file", "sqlite", "memory":
	default:
		return fmt.Errorf("invalid cache backend %q: must be file, sqlite or memory", c.Cache.Backend)
	}
	if c.CallbackTimeout.Duration < 0 || c.HTTPTimeout.Duration < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"SPREADSHEET_ID":   &c.SpreadsheetID,
		"API_KEY":          &c.APIKey,
		"TIMER_SHEET":      &c.TimerSheet,
		"TIMER_COLUMNS":    &c.TimerColumns,
		"CALENDAR_SHEET":   &c.CalendarSheet,
		"CALENDAR_COLUMNS": &c.CalendarColumns,
		"WEB_APP_URL":      &c.WebAppURL,
		"CACHE_BACKEND":    &c.Cache.Backend,
		"CACHE_PATH":       &c.Cache.Path,
		"LOG_LEVEL":        &c.Logging.Level,
		"LOG_FORMAT":       &c.Logging.Format,
		"ADDR":             &c.Addr,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"CALLBACK_TIMEOUT": &c.CallbackTimeout,
		"HTTP_TIMEOUT":     &c.HTTPTimeout,
	}
	for name, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s%s: %w", envPrefix, name, err)
		}
		dst.Duration = d
	}
	return nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.TimerSheet == "" {
		c.TimerSheet = def.TimerSheet
	}
	if c.TimerColumns == "" {
		c.TimerColumns = def.TimerColumns
	}
	if c.CalendarSheet == "" {
		c.CalendarSheet = def.CalendarSheet
	}
	if c.CalendarColumns == "" {
		c.CalendarColumns = def.CalendarColumns
	}
	if c.CallbackTimeout.Duration == 0 {
		c.CallbackTimeout = def.CallbackTimeout
	}
	if c.HTTPTimeout.Duration == 0 {
		c.HTTPTimeout = def.HTTPTimeout
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = def.Cache.Backend
	}
	if c.Addr == "" {
		c.Addr = def.Addr
	}
}

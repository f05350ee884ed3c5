package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type API struct {
	Type      string        `yaml:"type"`
	BaseURL   string        `yaml:"base_url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type Asset struct {
	ID   string `yaml:"id"`   // API identifier, e.g. bitcoin
	Name string `yaml:"name"` // display name, e.g. Bitcoin
}

type History struct {
	Days     int    `yaml:"days"`
	Interval string `yaml:"interval"` // daily
	Currency string `yaml:"currency"`
}

type Poll struct {
	Interval time.Duration `yaml:"interval"`
}

type Display struct {
	TimeZone string `yaml:"time_zone"` // IANA name or "Local"
}

// Format describes how a currency amount is decorated.
type Format struct {
	Symbol    string `yaml:"symbol"`
	Placement string `yaml:"placement"` // prefix | suffix
}

type Metrics struct {
	ListenAddress string        `yaml:"listen_address"` // empty disables the endpoint
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

type Config struct {
	API        API               `yaml:"api"`
	Asset      Asset             `yaml:"asset"`
	Currencies []string          `yaml:"currencies"`
	History    History           `yaml:"history"`
	Poll       Poll              `yaml:"poll"`
	Display    Display           `yaml:"display"`
	Formats    map[string]Format `yaml:"formats"`
	Metrics    Metrics           `yaml:"metrics"`
	Log        Log               `yaml:"log"`
}

const (
	DefaultBaseURL      = "https://api.coingecko.com/api/v3"
	DefaultPollInterval = 60 * time.Second
	DefaultHistoryDays  = 7
)

// Load reads a YAML config from path and fills in defaults. An empty path
// yields the defaults alone.
func Load(path string) (*Config, error) {
	var c Config
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	applyEnv(&c)
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.API.Type == "" {
		c.API.Type = "coingecko"
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = 10 * time.Second
	}
	if c.API.UserAgent == "" {
		c.API.UserAgent = "btc-price/1.0"
	}
	if c.Asset.ID == "" {
		c.Asset.ID = "bitcoin"
	}
	if c.Asset.Name == "" {
		c.Asset.Name = "Bitcoin"
	}
	if len(c.Currencies) == 0 {
		c.Currencies = []string{"usd", "nok"}
	}
	if c.History.Days == 0 {
		c.History.Days = DefaultHistoryDays
	}
	if c.History.Interval == "" {
		c.History.Interval = "daily"
	}
	if c.History.Currency == "" {
		c.History.Currency = c.Currencies[0]
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Display.TimeZone == "" {
		c.Display.TimeZone = "Local"
	}
	if c.Metrics.ReadTimeout == 0 {
		c.Metrics.ReadTimeout = 5 * time.Second
	}
	if c.Metrics.WriteTimeout == 0 {
		c.Metrics.WriteTimeout = 5 * time.Second
	}
	if c.Metrics.IdleTimeout == 0 {
		c.Metrics.IdleTimeout = 60 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate reports the first setting that cannot be used as given.
func (c *Config) Validate() error {
	switch c.API.Type {
	case "coingecko":
	default:
		return fmt.Errorf("unknown api type: %s", c.API.Type)
	}
	if c.API.Timeout < 0 {
		return errors.New("api.timeout must be positive")
	}
	if len(c.Currencies) == 0 {
		return errors.New("currencies must not be empty")
	}
	if c.History.Days <= 0 {
		return fmt.Errorf("history.days must be positive, got %d", c.History.Days)
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval must be positive, got %s", c.Poll.Interval)
	}
	for code, f := range c.Formats {
		switch strings.ToLower(f.Placement) {
		case "", "prefix", "suffix":
		default:
			return fmt.Errorf("formats.%s.placement: unknown value %q", code, f.Placement)
		}
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown value %q", c.Log.Format)
	}
	return nil
}

// Location resolves the display time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Display.TimeZone == "" || strings.EqualFold(c.Display.TimeZone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Display.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("display.time_zone: %w", err)
	}
	return loc, nil
}

// applyEnv lets secrets and endpoints come from the environment.
func applyEnv(c *Config) {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv("COINGECKO_BASE_URL"); v != "" {
		c.API.BaseURL = v
	}
}

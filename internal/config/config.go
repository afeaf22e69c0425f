package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/goccy/go-yaml"

	"github.com/hieulq/nestup-evn/internal/evn"
)

const (
	DefaultPort            = 8080
	DefaultRefreshInterval = 10 * time.Minute
	DefaultStateTTL        = 3 * time.Hour
	DefaultTimezone        = "Asia/Ho_Chi_Minh"
	DefaultLogLevel        = "info"
)

var resolveArea = evn.ForCustomer

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type Config struct {
	CustomerID      string        `yaml:"customerId" env:"EVN_CUSTOMER_ID"`
	Area            string        `yaml:"area,omitempty"`
	SnapshotPath    string        `yaml:"snapshotPath"`
	Timezone        string        `yaml:"timezone"`
	HTTP            HTTPConfig    `yaml:"http"`
	RefreshInterval time.Duration `yaml:"refreshInterval"`
	StateTTL        time.Duration `yaml:"stateTTL" env:"EVN_STATE_TTL"`
	LogLevel        string        `yaml:"logLevel"`
	Debug           bool          `yaml:"-" env:"-"`
}

// Default returns a config with every optional field set
func Default() *Config {
	return &Config{
		SnapshotPath:    "evn-data.yaml",
		Timezone:        DefaultTimezone,
		HTTP:            HTTPConfig{Port: DefaultPort},
		RefreshInterval: DefaultRefreshInterval,
		StateTTL:        DefaultStateTTL,
		LogLevel:        DefaultLogLevel,
	}
}

// Load reads the YAML file on top of the defaults and applies EVN_*
// environment overrides. A missing file is not an error when filename is
// empty.
func Load(filename string) (*Config, error) {
	c := Default()

	if filename != "" {
		buf, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(buf, c); err != nil {
			return nil, fmt.Errorf("parsing yaml: %w", err)
		}
	}

	if err := applyEnv(c, os.LookupEnv); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the config and resolves the customer's area. Unknown and
// unsupported areas are rejected.
func (c *Config) Validate() (evn.Area, error) {
	var errs []error

	area, err := resolveArea(c.CustomerID)
	if err != nil {
		errs = append(errs, fmt.Errorf("customerId: %w", err))
	} else if c.Area != "" {
		named, err := evn.Lookup(c.Area)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("area: %w", err))
		case named.Name != area.Name:
			errs = append(errs, fmt.Errorf("area: customer %s belongs to %s, not %s",
				strings.ToUpper(strings.TrimSpace(c.CustomerID)), area.Name, named.Name))
		}
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port: %d out of range", c.HTTP.Port))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refreshInterval must be positive"))
	}
	if c.StateTTL < c.RefreshInterval {
		errs = append(errs, fmt.Errorf("stateTTL %s shorter than refreshInterval %s", c.StateTTL, c.RefreshInterval))
	}

	if len(errs) > 0 {
		return evn.Area{}, errors.Join(errs...)
	}
	return area, nil
}

// Location returns the configured timezone
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.LoadLocation(DefaultTimezone)
	}
	return time.LoadLocation(c.Timezone)
}

// Address returns the :port listen address
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.HTTP.Port)
}

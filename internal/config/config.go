package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "config.yaml"

// Config holds all application configuration.
type Config struct {
	Env string `yaml:"env"`

	Log struct {
		// Level overrides the environment's default zap level when set.
		Level string `yaml:"level"`
	} `yaml:"log"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver     string `yaml:"driver"` // postgres, sqlite or memory
		DSN        string `yaml:"dsn"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`

	Sync struct {
		// Interval between reconciliation passes. Ignored when Cron is set.
		Interval time.Duration `yaml:"interval"`
		// Cron is an optional 5-field cron expression (UTC).
		Cron        string        `yaml:"cron"`
		Workers     int           `yaml:"workers"`
		PassTimeout time.Duration `yaml:"pass_timeout"`
	} `yaml:"sync"`

	Weather struct {
		Latitude      float64 `yaml:"latitude"`
		Longitude     float64 `yaml:"longitude"`
		WeatherAPIKey string  `yaml:"weatherapi_key"`
	} `yaml:"weather"`

	HTTP struct {
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`

	Prices struct {
		DefaultCountry string `yaml:"default_country"`
	} `yaml:"prices"`

	// DotenvFile is the .env file that was applied, empty when none exists.
	DotenvFile string `yaml:"-"`
}

const dotenvFile = ".env"

// Path returns the config file location from CONFIG_PATH or DefaultPath.
func Path() string {
	return getenvDefault("CONFIG_PATH", DefaultPath)
}

// Load reads config from an optional YAML file, then applies .env and
// environment variable overrides, then defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := godotenv.Load(dotenvFile); err == nil {
		cfg.DotenvFile = dotenvFile
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", dotenvFile, err)
	}

	cfg.Weather.Latitude = defaultLatitude
	cfg.Weather.Longitude = defaultLongitude

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	defaultLatitude  = 59.0
	defaultLongitude = 26.0
)

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Env = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv("DB_DRIVER"); v != "" {
		c.Database.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("SYNC_CRON"); v != "" {
		c.Sync.Cron = v
	}
	if v := os.Getenv("WEATHERAPI_API_KEY"); v != "" {
		c.Weather.WeatherAPIKey = v
	}
	if v := os.Getenv("PRICE_COUNTRY"); v != "" {
		c.Prices.DefaultCountry = v
	}

	var err error
	if c.Sync.Interval, err = getenvDuration("SYNC_INTERVAL", c.Sync.Interval); err != nil {
		return err
	}
	if c.Sync.PassTimeout, err = getenvDuration("SYNC_PASS_TIMEOUT", c.Sync.PassTimeout); err != nil {
		return err
	}
	if c.HTTP.Timeout, err = getenvDuration("HTTP_TIMEOUT", c.HTTP.Timeout); err != nil {
		return err
	}
	if c.Sync.Workers, err = getenvInt("SYNC_WORKERS", c.Sync.Workers); err != nil {
		return err
	}
	if c.Weather.Latitude, err = getenvFloat("WEATHER_LATITUDE", c.Weather.Latitude); err != nil {
		return err
	}
	if c.Weather.Longitude, err = getenvFloat("WEATHER_LONGITUDE", c.Weather.Longitude); err != nil {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/electricity.db"
	}
	if c.Sync.Interval == 0 {
		c.Sync.Interval = time.Minute
	}
	if c.Sync.Workers == 0 {
		c.Sync.Workers = 1
	}
	if c.Sync.PassTimeout == 0 {
		c.Sync.PassTimeout = 5 * time.Minute
	}
	if c.HTTP.Timeout == 0 {
		c.HTTP.Timeout = 10 * time.Second
	}
	if c.Prices.DefaultCountry == "" {
		c.Prices.DefaultCountry = "EE"
	}
	c.Prices.DefaultCountry = strings.ToUpper(c.Prices.DefaultCountry)
}

// Validate checks that all fields hold usable values.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	case "sqlite", "memory":
	default:
		return fmt.Errorf("database.driver must be one of postgres, sqlite, memory; got %q", c.Database.Driver)
	}

	if c.Sync.Interval < 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.Cron != "" {
		if _, err := cron.ParseStandard(c.Sync.Cron); err != nil {
			return fmt.Errorf("sync.cron: %w", err)
		}
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be at least 1")
	}
	if c.Sync.PassTimeout < 0 {
		return fmt.Errorf("sync.pass_timeout must be positive")
	}
	if c.HTTP.Timeout < 0 {
		return fmt.Errorf("http.timeout must be positive")
	}
	if c.Weather.Latitude < -90 || c.Weather.Latitude > 90 {
		return fmt.Errorf("weather.latitude must be within [-90, 90]")
	}
	if c.Weather.Longitude < -180 || c.Weather.Longitude > 180 {
		return fmt.Errorf("weather.longitude must be within [-180, 180]")
	}
	if _, err := strconv.Atoi(c.Server.Port); err != nil {
		return fmt.Errorf("server.port must be numeric: %w", err)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

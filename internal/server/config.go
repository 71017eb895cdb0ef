package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/iwvelando/saas-forecast/internal/config"
	"github.com/iwvelando/saas-forecast/pkg/constants"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"
)

// Store backends selected by the server configuration.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

// Config defines runtime parameters for the HTTP server. An empty DatabaseURL
// keeps saved configurations in memory.
type Config struct {
	Address       string               `yaml:"address"`
	MaxUploadSize string               `yaml:"maxUploadSize"`
	DatabaseURL   string               `yaml:"databaseUrl"`
	Version       string               `yaml:"version"`
	Logging       config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
}

// Overrides carries command-line values that take precedence over the file
// and the environment. Empty fields leave the loaded value alone.
type Overrides struct {
	Address       string
	MaxUploadSize string
	DatabaseURL   string
}

// LoadConfig reads the server configuration from YAML, applies DATABASE_URL
// and validates the result. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address: constants.DefaultServerAddress,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read server config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse server config: %w", err)
			}
		}
	}

	if url := strings.TrimSpace(os.Getenv("DATABASE_URL")); url != "" {
		cfg.DatabaseURL = url
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Apply layers command-line overrides onto a loaded configuration and
// re-validates it.
func (c *Config) Apply(o Overrides) error {
	if o.Address != "" {
		c.Address = o.Address
	}
	if o.MaxUploadSize != "" {
		c.MaxUploadSize = o.MaxUploadSize
	}
	if o.DatabaseURL != "" {
		c.DatabaseURL = o.DatabaseURL
	}
	return c.normalize()
}

// UploadSizeBytes returns the validated upload limit in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// Store reports which configuration store backend the server should open.
func (c *Config) Store() string {
	if c.DatabaseURL == "" {
		return StoreMemory
	}
	return StorePostgres
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}
	c.Version = strings.TrimSpace(c.Version)

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid maxUploadSize: %w", err)
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)

	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	if c.DatabaseURL != "" {
		if _, err := pgxpool.ParseConfig(c.DatabaseURL); err != nil {
			return fmt.Errorf("invalid databaseUrl: %w", err)
		}
	}
	return nil
}

var sizeUnits = map[string]int64{
	"":   1,
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
}

// ParseSize converts a byte count with an optional K, M or G suffix into
// bytes. An empty value yields the default upload limit.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	number := strings.TrimRightFunc(trimmed, func(r rune) bool { return !unicode.IsDigit(r) })
	if number == "" {
		return 0, fmt.Errorf("invalid size: %s", value)
	}
	unit := strings.TrimSpace(trimmed[len(number):])
	multiplier, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unsupported size unit %q", unit)
	}

	n, err := strconv.ParseInt(strings.TrimSpace(number), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size value %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative size %s", value)
	}
	if n > (1<<63-1)/multiplier {
		return 0, fmt.Errorf("size overflow for value %s", value)
	}
	return n * multiplier, nil
}

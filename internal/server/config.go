package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iwvelando/fleet-optimizer/internal/config"
	"github.com/iwvelando/fleet-optimizer/pkg/constants"
	"gopkg.in/yaml.v3"
)

// Config defines runtime parameters for the HTTP server. Analysis settings
// come from the main configuration file.
type Config struct {
	Address         string               `yaml:"address"`
	MaxUploadSize   string               `yaml:"maxUploadSize"`
	RequestTimeout  string               `yaml:"requestTimeout"`
	ShutdownTimeout string               `yaml:"shutdownTimeout"`
	Logging         config.LoggingConfig `yaml:"logging"`

	uploadSizeBytes int64
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

// LoadConfig loads the server configuration from YAML. A missing file yields
// the defaults without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
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

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// UploadSizeBytes returns the largest accepted vessel table upload.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// Timeout returns the deadline applied to a single analysis request.
func (c *Config) Timeout() time.Duration {
	return c.requestTimeout
}

// ShutdownGrace returns how long in-flight requests may finish on shutdown.
func (c *Config) ShutdownGrace() time.Duration {
	return c.shutdownTimeout
}

func (c *Config) normalize() error {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = constants.DefaultServerAddress
	}

	size, err := ParseSize(c.MaxUploadSize)
	if err != nil {
		return err
	}
	if size <= 0 {
		size = constants.DefaultMaxUploadSizeBytes
	}
	c.uploadSizeBytes = size
	c.MaxUploadSize = strconv.FormatInt(size, 10)

	if c.requestTimeout, err = parseTimeout("request timeout", c.RequestTimeout, constants.DefaultRequestTimeout); err != nil {
		return err
	}
	if c.shutdownTimeout, err = parseTimeout("shutdown timeout", c.ShutdownTimeout, constants.DefaultShutdownTimeout); err != nil {
		return err
	}
	return nil
}

// parseTimeout parses a Go duration; empty or non-positive values select def.
func parseTimeout(name, value string, def time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// sizeUnits maps a case-insensitive suffix to its multiplier. Longer
// suffixes come first so "MB" is not read as "B".
var sizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
	{"B", 1},
}

// ParseSize converts a byte count with an optional binary unit ("512",
// "256K", "10MB") into bytes. An empty value selects the default upload size.
func ParseSize(value string) (int64, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return constants.DefaultMaxUploadSizeBytes, nil
	}

	number, multiplier := trimmed, int64(1)
	for _, unit := range sizeUnits {
		if strings.HasSuffix(trimmed, unit.suffix) {
			number = strings.TrimSpace(strings.TrimSuffix(trimmed, unit.suffix))
			multiplier = unit.multiplier
			break
		}
	}

	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("invalid size %q: must not be negative", value)
	}
	if n > 0 && multiplier > (1<<63-1)/n {
		return 0, fmt.Errorf("size %q overflows", value)
	}
	return n * multiplier, nil
}

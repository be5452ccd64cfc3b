// Package config loads xmlvalues settings from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"syscall"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the xmlvalues commands.
type Config struct {
	Listen         string `yaml:"listen"`
	SocketPerms    string `yaml:"socket_perms"`
	BufferSize     int    `yaml:"buffer_size"`
	MaxRead        int    `yaml:"max_read"`
	MaxDocument    int    `yaml:"max_document_size"`
	MaxConnections int    `yaml:"max_connections"`
	Workers        int    `yaml:"workers"`
	DebugSignal    int    `yaml:"debug_signal"`
	LogLevel       string `yaml:"log_level"`
	Pretty         *bool  `yaml:"pretty,omitempty"` // nil means detect a terminal
}

const (
	DefaultListen         = "/tmp/xmlvalues.sock"
	DefaultSocketPerms    = "0666"
	DefaultBufferSize     = 16384
	DefaultMaxRead        = 4096
	DefaultMaxDocument    = 16 << 20
	DefaultMaxConnections = 64
	DefaultLogLevel       = "info"
)

var (
	ErrInvalidSocketPerms = errors.New("invalid socket permissions")
	ErrInvalidSize        = errors.New("invalid size")
)

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen:         DefaultListen,
		SocketPerms:    DefaultSocketPerms,
		BufferSize:     DefaultBufferSize,
		MaxRead:        DefaultMaxRead,
		MaxDocument:    DefaultMaxDocument,
		MaxConnections: DefaultMaxConnections,
		Workers:        runtime.NumCPU(),
		DebugSignal:    int(syscall.SIGUSR1),
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads the YAML file at path on top of the defaults. An empty path
// returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate populates missing entries with defaults and rejects invalid ones.
func (c *Config) Validate() error {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.SocketPerms == "" {
		c.SocketPerms = DefaultSocketPerms
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.DebugSignal <= 0 {
		c.DebugSignal = int(syscall.SIGUSR1)
	}

	if _, err := c.SocketMode(); err != nil {
		return err
	}

	for name, v := range map[string]int{
		"buffer_size":       c.BufferSize,
		"max_read":          c.MaxRead,
		"max_document_size": c.MaxDocument,
		"max_connections":   c.MaxConnections,
	} {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %d", ErrInvalidSize, name, v)
		}
	}
	if c.BufferSize == 0 {
		c.BufferSize = DefaultBufferSize
	}
	if c.MaxRead == 0 {
		c.MaxRead = DefaultMaxRead
	}
	if c.MaxDocument == 0 {
		c.MaxDocument = DefaultMaxDocument
	}
	if c.MaxConnections == 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	return nil
}

// SocketMode parses SocketPerms as an octal file mode.
func (c *Config) SocketMode() (os.FileMode, error) {
	mode, err := strconv.ParseUint(c.SocketPerms, 8, 32)
	if err != nil {
		return 0, fmt.Errorf("%w %q: %w", ErrInvalidSocketPerms, c.SocketPerms, err)
	}
	return os.FileMode(mode), nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Package config loads the optional ptybridge configuration file.
//
// The file is YAML. A missing file is not an error: every key has a
// default, and command-line flags override whatever the file sets.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is where the configuration file is looked up when no
	// --config flag is given.
	DefaultPath = "~/.ptybridge/config.yml"

	// DefaultTerm is the terminal type forced on the child shell.
	DefaultTerm = "xterm-256color"

	// DefaultResizeFD is the inherited descriptor carrying window-size records.
	DefaultResizeFD = 3

	// DefaultLogLevel keeps a clean session silent on stderr.
	DefaultLogLevel = "warn"
)

// Config is the ptybridge configuration.
type Config struct {
	// Shell is the executable to launch. Empty means $SHELL, then a fallback.
	Shell string `yaml:"shell"`

	// Term overrides the TERM value exported to the shell.
	Term string `yaml:"term"`

	// Dir is the working directory of the shell. Empty inherits ours.
	Dir string `yaml:"dir"`

	// Paths are extra directories placed after the built-in PATH entries.
	Paths []string `yaml:"paths"`

	// Env holds extra variables exported to the shell.
	Env map[string]string `yaml:"env"`

	// ResizeFD is the descriptor carrying window-size records.
	// A negative value disables the resize channel.
	ResizeFD *int `yaml:"resize_fd"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	fd := DefaultResizeFD
	return &Config{
		Term:     DefaultTerm,
		ResizeFD: &fd,
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the configuration at path. A missing file yields Default().
func Load(path string) (*Config, error) {
	expanded, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(expanded)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", expanded, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", expanded, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", expanded, err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Term == "" {
		c.Term = DefaultTerm
	}
	if c.ResizeFD == nil {
		fd := DefaultResizeFD
		c.ResizeFD = &fd
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks values that would otherwise fail late, after the shell
// has already been started.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.ResizeFD != nil && *c.ResizeFD >= 0 && *c.ResizeFD <= 2 {
		return fmt.Errorf("resize_fd %d collides with a standard stream", *c.ResizeFD)
	}
	for key := range c.Env {
		if key == "" || strings.ContainsAny(key, "=\x00") {
			return fmt.Errorf("invalid environment variable name %q", key)
		}
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", name)
	}
	return level, nil
}

// ExpandPath replaces a leading "~" or "~/" with the home directory.
// Other paths, including "~user" forms, come back unchanged.
func ExpandPath(path string) (string, error) {
	rest, ok := strings.CutPrefix(path, "~")
	if !ok || (rest != "" && rest[0] != '/') {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Join(home, rest), nil
}

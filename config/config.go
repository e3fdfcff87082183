// Package config loads host settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfig    = "LISTOPAD_CONFIG"
	EnvSocket    = "LISTOPAD_SOCK"
	EnvDatabase  = "LISTOPAD_DB"
	EnvHistory   = "LISTOPAD_HISTORY"
	EnvMaxTraces = "LISTOPAD_MAX_TRACES"
)

// Config holds the settings shared by the REPL and the daemon.
type Config struct {
	Path         string   `yaml:"-"`
	Socket       string   `yaml:"socket"`
	Database     string   `yaml:"database"` // empty disables session persistence
	History      string   `yaml:"history"`
	Prompt       string   `yaml:"prompt"`
	MaxTraces    int      `yaml:"max_traces"`
	Preload      []string `yaml:"preload"`
	DebugOnError bool     `yaml:"debug_on_error"`
}

func Default() *Config {
	history := ".listopad_history"
	if home, err := os.UserHomeDir(); err == nil {
		history = filepath.Join(home, history)
	}
	return &Config{
		Socket:    "/tmp/listopad.sock",
		History:   history,
		Prompt:    "> ",
		MaxTraces: 1000,
	}
}

// Load reads the YAML file at path over the defaults. Relative preload
// paths are resolved against the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", absPath, err)
	}
	defer file.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", absPath, err)
	}
	cfg.Path = absPath

	dir := filepath.Dir(absPath)
	for i, p := range cfg.Preload {
		if !filepath.IsAbs(p) {
			cfg.Preload[i] = filepath.Join(dir, p)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv loads the file named by LISTOPAD_CONFIG, if any, then applies the
// individual environment overrides.
func FromEnv() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfig); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvSocket); v != "" {
		c.Socket = v
	}
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvHistory); v != "" {
		c.History = v
	}
	if v := os.Getenv(EnvMaxTraces); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvMaxTraces, err)
		}
		c.MaxTraces = n
	}
	return c.validate()
}

func (c *Config) validate() error {
	if c.Socket == "" {
		return fmt.Errorf("config: socket must not be empty")
	}
	if c.MaxTraces <= 0 {
		return fmt.Errorf("config: max_traces must be positive, got %d", c.MaxTraces)
	}
	return nil
}

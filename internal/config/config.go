// Package config reads the toolchat TOML file.
//
// The file is a set of sections, each a flat table of scalar values:
//
//	[chat]
//	model_name_default = "mistral:instruct"
//	purpose_prompt = "You are a helpful assistant."
//
//	[my_tools]
//	allow_shell_exec = true
//
// Lookups take a fallback that is returned for missing sections or keys.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"sync"

	"github.com/BurntSushi/toml"
)

// Section names.
const (
	SectionChat     = "chat"
	SectionChatUI   = "chat_ui"
	SectionMyTools  = "my_tools"
	SectionUI       = "ui"
	SectionTemporal = "temporal"
)

// DefaultPath is used when no path is given on the command line.
const DefaultPath = "toolchat.toml"

// Config holds the decoded file.
type Config struct {
	mu       sync.RWMutex
	path     string
	sections map[string]map[string]any
}

// New returns an empty config; every lookup yields its fallback.
func New() *Config {
	return &Config{sections: make(map[string]map[string]any)}
}

// Load reads path. A missing file is not an error and yields an empty
// config.
func Load(path string) (*Config, error) {
	cfg := New()
	cfg.path = path
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg.sections); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML text.
func Parse(data string) (*Config, error) {
	cfg := New()
	if _, err := toml.Decode(data, &cfg.sections); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Path returns the file the config was loaded from, if any.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) lookup(section, key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sec, ok := c.sections[section]
	if !ok {
		return nil, false
	}
	v, ok := sec[key]
	return v, ok
}

// Get returns the value as a string.
func (c *Config) Get(section, key, fallback string) string {
	v, ok := c.lookup(section, key)
	if !ok {
		return fallback
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// GetBool returns the value as a boolean. Native TOML booleans are used
// as-is; for other values "", "False", "false" and "0" are false and
// anything else is true.
func (c *Config) GetBool(section, key string, fallback bool) bool {
	v, ok := c.lookup(section, key)
	if !ok {
		return fallback
	}
	if b, ok := v.(bool); ok {
		return b
	}
	switch c.Get(section, key, "") {
	case "", "False", "false", "0":
		return false
	}
	return true
}

// GetInt returns the value as an int, or fallback if it is not numeric.
func (c *Config) GetInt(section, key string, fallback int) int {
	v, ok := c.lookup(section, key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return fallback
}

// GetFloat returns the value as a float64, or fallback if it is not
// numeric.
func (c *Config) GetFloat(section, key string, fallback float64) float64 {
	v, ok := c.lookup(section, key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Set overrides a value in memory. The file is not rewritten.
func (c *Config) Set(section, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sec, ok := c.sections[section]
	if !ok {
		sec = make(map[string]any)
		c.sections[section] = sec
	}
	sec[key] = value
}

// Save writes the current values back to the file the config was loaded
// from.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, err := os.Create(c.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c.sections)
}

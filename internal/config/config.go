package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds all configurable gimpbridge settings.
type Config struct {
	StateDir       string `json:"state_dir"`        // override for the bridge state directory
	Host           string `json:"host"`             // bridge bind host
	Port           int    `json:"port"`             // bridge bind port
	GimpBinary     string `json:"gimp_binary"`      // override auto-detect
	GimpProfileDir string `json:"gimp_profile_dir"` // isolated GIMP profile
	HistoryDepth   int    `json:"history_depth"`    // undo stack ceiling per project
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		Host:         "127.0.0.1",
		Port:         41749,
		HistoryDepth: 50,
	}
}

// GlobalPath returns the location of the global config file,
// ~/.config/gimpbridge/config.json.
func GlobalPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "gimpbridge", "config.json"), nil
}

// LoadGlobal reads the global config file.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return loadFile(path, true)
}

// SaveGlobal writes cfg to the global config file, creating the parent
// directory when needed.
func SaveGlobal(cfg Config) error {
	path, err := GlobalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadProject reads .gimpbridgerc in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".gimpbridgerc", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()

	apply := func(c *Config) {
		if c == nil {
			return
		}
		if c.StateDir != "" {
			result.StateDir = c.StateDir
		}
		if c.Host != "" {
			result.Host = c.Host
		}
		if c.Port != 0 {
			result.Port = c.Port
		}
		if c.GimpBinary != "" {
			result.GimpBinary = c.GimpBinary
		}
		if c.GimpProfileDir != "" {
			result.GimpProfileDir = c.GimpProfileDir
		}
		if c.HistoryDepth != 0 {
			result.HistoryDepth = c.HistoryDepth
		}
	}
	apply(global)
	apply(project)

	return result
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Package config loads quill's configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a console host.
type Config struct {
	Prompt     string `yaml:"prompt"`
	ContPrompt string `yaml:"continuation_prompt"`

	// RawPasteWindow bounds receiver buffering during bulk uploads.
	// Must fit a uint16; the wire header carries it in two bytes.
	RawPasteWindow int `yaml:"raw_paste_window"`

	// Listen enables the TCP console server when non-empty.
	Listen string `yaml:"listen"`

	// CompileCacheSize bounds the evaluator's compiled-chunk cache.
	CompileCacheSize int `yaml:"compile_cache_size"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Prompt:           ">>> ",
		ContPrompt:       "... ",
		RawPasteWindow:   512,
		CompileCacheSize: 64,
	}
}

// Load reads path over the defaults. A missing file is not an error;
// a malformed or out-of-range one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RawPasteWindow < 1 || c.RawPasteWindow > 0xFFFF {
		return fmt.Errorf("raw_paste_window %d out of range 1..65535", c.RawPasteWindow)
	}
	if c.CompileCacheSize < 1 {
		return fmt.Errorf("compile_cache_size %d must be positive", c.CompileCacheSize)
	}
	return nil
}

// Dir returns the quill configuration directory.
// Respects XDG_CONFIG_HOME on Unix, APPDATA on Windows.
func Dir() string {
	var base string

	if runtime.GOOS == "windows" {
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	} else {
		base = os.Getenv("XDG_CONFIG_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(base, "quill")
}

// File returns the default config file path.
func File() string {
	return filepath.Join(Dir(), "quill.yaml")
}

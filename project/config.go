package project

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no configuration file is given explicitly.
const DefaultConfigFile = "tplc.yaml"

// Config holds the settings of a build.
type Config struct {
	// In is the directory scanned for templates.
	In string `yaml:"in"`
	// Out receives the reports. Empty writes each report next to its template.
	Out string `yaml:"out"`
	// Marker is the prefix of marker comments in template files.
	Marker string `yaml:"marker"`
	// Dev enables verbose output.
	Dev bool `yaml:"dev"`
	// Extensions are the suffixes of template files.
	Extensions []string `yaml:"extensions"`
	// Scope is an optional YAML file whose data is used to preview binding values.
	Scope string `yaml:"scope"`
}

// DefaultConfig returns the configuration used when no file sets a value.
func DefaultConfig() Config {
	return Config{
		In:         ".",
		Marker:     "tplc",
		Extensions: []string{".tpl.html", ".tpl.md"},
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error
// when required is false.
func LoadConfig(path string, required bool) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.Marker == "" {
		return cfg, fmt.Errorf("config %s: marker must not be empty", path)
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultConfig().Extensions
	}
	return cfg, nil
}

package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// SaveTo writes the config to a specific path. The extension selects YAML
// or TOML.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := c.Marshal(FormatFor(path))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Marshal encodes the config in the given syntax.
func (c *Config) Marshal(format Format) ([]byte, error) {
	if format == FormatTOML {
		return toml.Marshal(c)
	}
	return yaml.Marshal(c)
}

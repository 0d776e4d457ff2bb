package config

import (
	"fmt"

	"github.com/jinzhu/copier"
)

// Clone returns a deep copy, used to derive per-shape configurations from a
// shared one.
func (c *Config) Clone() (*Config, error) {
	out := &Config{}
	if err := copier.CopyWithOption(out, c, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("cloning config: %w", err)
	}
	return out, nil
}

// ForShape derives the configuration of a procedural generated for one
// shape: the object path is pinned and the traversal filters are disabled
// since the transform and visibility were resolved by the parent.
func (c *Config) ForShape(path string) (*Config, error) {
	out, err := c.Clone()
	if err != nil {
		return nil, err
	}
	out.ObjectPath = path
	out.NamePrefix = ""
	out.OverrideAttributes = nil
	out.Filters.IgnoreTransforms = true
	out.Filters.IgnoreVisibility = true
	out.Filters.IgnoreInstances = true
	return out, nil
}

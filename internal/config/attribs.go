package config

import (
	"slices"
	"strings"
)

// CleanAttribName strips the longest configured prefix from name. A name
// equal to a prefix is kept as is.
func (c *Config) CleanAttribName(name string) string {
	best := ""
	for _, p := range c.Attribs.PrefixesToRemove {
		if len(p) > len(best) && len(name) > len(p) && strings.HasPrefix(name, p) {
			best = p
		}
	}
	return name[len(best):]
}

// IsIgnored reports whether an attribute is excluded. Both the raw and the
// cleaned name are checked.
func (c *Config) IsIgnored(rawName, cleanName string) bool {
	return slices.Contains(c.Attribs.Ignore, rawName) || slices.Contains(c.Attribs.Ignore, cleanName)
}

// IsForceConstant reports whether an attribute must be promoted to a
// single object value.
func (c *Config) IsForceConstant(name string) bool {
	return slices.Contains(c.Attribs.ForceConstant, name)
}

// ComputeTangentsFor reports whether tangents are requested for a UV set.
// The default set is named "uv".
func (c *Config) ComputeTangentsFor(uvSet string) bool {
	if uvSet == "" {
		uvSet = "uv"
	}
	return slices.Contains(c.Attribs.ComputeTangents, uvSet)
}

// AdjustRadius applies radius_scale then clamps to [radius_min, radius_max].
func (c *Config) AdjustRadius(r float32) float32 {
	return clampScaled(r, c.Shape.RadiusScale, c.Shape.RadiusMin, c.Shape.RadiusMax)
}

// AdjustWidth applies width_scale then clamps to [width_min, width_max].
func (c *Config) AdjustWidth(w float32) float32 {
	return clampScaled(w, c.Shape.WidthScale, c.Shape.WidthMin, c.Shape.WidthMax)
}

func clampScaled(v float32, scale, lo, hi float64) float32 {
	s := float64(v) * scale
	if s < lo {
		s = lo
	} else if s > hi {
		s = hi
	}
	return float32(s)
}

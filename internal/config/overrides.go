package config

// Subdivision types accepted by the subdiv_type override.
const (
	SubdivNone     = "none"
	SubdivCatclark = "catclark"
	SubdivLinear   = "linear"
)

// NodeOverrides are the shape settings read from the host procedural node
// rather than from the configuration file.
type NodeOverrides struct {
	SubdivType       string `yaml:"subdiv_type" toml:"subdiv_type"`
	SubdivIterations int    `yaml:"subdiv_iterations" toml:"subdiv_iterations"`
	Smoothing        bool   `yaml:"smoothing" toml:"smoothing"`
	DispMap          string `yaml:"disp_map" toml:"disp_map"`
}

// DefaultNodeOverrides returns the values used when the host node does not
// set a parameter.
func DefaultNodeOverrides() NodeOverrides {
	return NodeOverrides{
		SubdivType: SubdivNone,
		Smoothing:  true,
	}
}

// Subdivided reports whether the mesh is rendered as a subdivision surface.
func (o NodeOverrides) Subdivided() bool {
	return o.SubdivType != "" && o.SubdivType != SubdivNone
}

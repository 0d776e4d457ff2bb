// Package config holds the parameters of one procedural expansion: which
// cache to read, how render frames map to cache time, which motion samples
// to emit and how user attributes are filtered.
package config

// CycleType selects how times outside the frame range are remapped.
type CycleType string

const (
	CycleHold    CycleType = "hold"
	CycleLoop    CycleType = "loop"
	CycleReverse CycleType = "reverse"
	CycleBounce  CycleType = "bounce"
)

// AttributesFrame selects the time user attributes are read at.
type AttributesFrame string

const (
	AttributesFrameRender       AttributesFrame = "render"
	AttributesFrameShutter      AttributesFrame = "shutter"
	AttributesFrameShutterOpen  AttributesFrame = "shutter_open"
	AttributesFrameShutterClose AttributesFrame = "shutter_close"
)

// ReferenceSource selects where rest positions and normals come from.
type ReferenceSource string

const (
	ReferenceAttributes         ReferenceSource = "attributes"
	ReferenceAttributesThenFile ReferenceSource = "attributes_then_file"
	ReferenceFile               ReferenceSource = "file"
	ReferenceFrame              ReferenceSource = "frame"
)

// Config holds all procedural settings. It is read-only once the
// procedural is constructed.
type Config struct {
	Filename   string `yaml:"filename" toml:"filename"`
	ObjectPath string `yaml:"objectpath" toml:"objectpath"`
	NamePrefix string `yaml:"nameprefix" toml:"nameprefix"`

	Time     TimeConfig     `yaml:"time" toml:"time"`
	Motion   MotionConfig   `yaml:"motion" toml:"motion"`
	Filters  FilterConfig   `yaml:"filters" toml:"filters"`
	Velocity VelocityConfig `yaml:"velocity" toml:"velocity"`
	Ref      RefConfig      `yaml:"reference" toml:"reference"`
	Attribs  AttribsConfig  `yaml:"attributes" toml:"attributes"`
	Shape    ShapeConfig    `yaml:"shape" toml:"shape"`

	OverrideAttributes []string `yaml:"override_attributes" toml:"override_attributes"`

	Verbose bool          `yaml:"verbose" toml:"verbose"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// TimeConfig maps a render frame to a cache time.
type TimeConfig struct {
	Frame              float64   `yaml:"frame" toml:"frame"`
	FPS                float64   `yaml:"fps" toml:"fps"`
	Cycle              CycleType `yaml:"cycle" toml:"cycle"`
	StartFrame         *float64  `yaml:"start_frame,omitempty" toml:"start_frame,omitempty"` // nil: taken from the cache
	EndFrame           *float64  `yaml:"end_frame,omitempty" toml:"end_frame,omitempty"`
	Speed              float64   `yaml:"speed" toml:"speed"`
	Offset             float64   `yaml:"offset" toml:"offset"`
	PreserveStartFrame bool      `yaml:"preserve_start_frame" toml:"preserve_start_frame"`
}

// MotionConfig describes the motion sample list.
type MotionConfig struct {
	Samples                 []float64 `yaml:"samples" toml:"samples"`
	RelativeSamples         bool      `yaml:"relative_samples" toml:"relative_samples"`
	MotionSamples           int       `yaml:"motion_samples" toml:"motion_samples"`
	ShutterOpen             float64   `yaml:"shutter_open" toml:"shutter_open"`
	ShutterClose            float64   `yaml:"shutter_close" toml:"shutter_close"`
	ExpandSamplesIterations int       `yaml:"expand_samples_iterations" toml:"expand_samples_iterations"`
	OptimizeSamples         bool      `yaml:"optimize_samples" toml:"optimize_samples"`
	IgnoreDeformBlur        bool      `yaml:"ignore_deform_blur" toml:"ignore_deform_blur"`
	IgnoreTransformBlur     bool      `yaml:"ignore_transform_blur" toml:"ignore_transform_blur"`
}

// FilterConfig holds the traversal filters.
type FilterConfig struct {
	IgnoreVisibility bool `yaml:"ignore_visibility" toml:"ignore_visibility"`
	IgnoreTransforms bool `yaml:"ignore_transforms" toml:"ignore_transforms"`
	IgnoreInstances  bool `yaml:"ignore_instances" toml:"ignore_instances"`
	IgnoreNurbs      bool `yaml:"ignore_nurbs" toml:"ignore_nurbs"`
}

// VelocityConfig controls velocity based position extrapolation.
type VelocityConfig struct {
	Scale             float64 `yaml:"velocity_scale" toml:"velocity_scale"`
	VelocityName      string  `yaml:"velocity_name" toml:"velocity_name"`
	AccelerationName  string  `yaml:"acceleration_name" toml:"acceleration_name"`
	ForceVelocityBlur bool    `yaml:"force_velocity_blur" toml:"force_velocity_blur"`
}

// RefConfig controls reference (rest) pose output.
type RefConfig struct {
	OutputReference bool            `yaml:"output_reference" toml:"output_reference"`
	Source          ReferenceSource `yaml:"reference_source" toml:"reference_source"`
	PositionName    string          `yaml:"reference_position_name" toml:"reference_position_name"`
	NormalName      string          `yaml:"reference_normal_name" toml:"reference_normal_name"`
	Filename        string          `yaml:"reference_filename" toml:"reference_filename"`
	Frame           *float64        `yaml:"reference_frame,omitempty" toml:"reference_frame,omitempty"` // nil: first sample
}

// AttribsConfig holds the user attribute rules.
type AttribsConfig struct {
	ReadObject       bool            `yaml:"read_object_attributes" toml:"read_object_attributes"`
	ReadPrimitive    bool            `yaml:"read_primitive_attributes" toml:"read_primitive_attributes"`
	ReadPoint        bool            `yaml:"read_point_attributes" toml:"read_point_attributes"`
	ReadVertex       bool            `yaml:"read_vertex_attributes" toml:"read_vertex_attributes"`
	Frame            AttributesFrame `yaml:"attributes_frame" toml:"attributes_frame"`
	PrefixesToRemove []string        `yaml:"attribute_prefices_to_remove" toml:"attribute_prefices_to_remove"`
	Ignore           []string        `yaml:"ignore_attributes" toml:"ignore_attributes"`
	ForceConstant    []string        `yaml:"demote_to_object_attribute" toml:"demote_to_object_attribute"`
	ComputeTangents  []string        `yaml:"compute_tangents" toml:"compute_tangents"`
}

// ShapeConfig holds the geometry specific settings.
type ShapeConfig struct {
	RadiusName      string  `yaml:"radius_name" toml:"radius_name"`
	RadiusMin       float64 `yaml:"radius_min" toml:"radius_min"`
	RadiusMax       float64 `yaml:"radius_max" toml:"radius_max"`
	RadiusScale     float64 `yaml:"radius_scale" toml:"radius_scale"`
	WidthMin        float64 `yaml:"width_min" toml:"width_min"`
	WidthMax        float64 `yaml:"width_max" toml:"width_max"`
	WidthScale      float64 `yaml:"width_scale" toml:"width_scale"`
	NurbsSampleRate int     `yaml:"nurbs_sample_rate" toml:"nurbs_sample_rate"`
	StepSize        float64 `yaml:"step_size" toml:"step_size"`
	BoundsPadding   float64 `yaml:"bounds_padding" toml:"bounds_padding"`
	ReverseWinding  bool    `yaml:"reverse_winding" toml:"reverse_winding"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Time: TimeConfig{
			FPS:   24,
			Cycle: CycleHold,
			Speed: 1,
		},
		Velocity: VelocityConfig{
			Scale: 1,
		},
		Ref: RefConfig{
			Source:       ReferenceAttributesThenFile,
			PositionName: "Pref",
			NormalName:   "Nref",
		},
		Attribs: AttribsConfig{
			Frame: AttributesFrameRender,
		},
		Shape: ShapeConfig{
			RadiusMin:       0,
			RadiusMax:       1000000,
			RadiusScale:     1,
			WidthMin:        0,
			WidthMax:        1000000,
			WidthScale:      1,
			NurbsSampleRate: 5,
			ReverseWinding:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

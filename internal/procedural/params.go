package procedural

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/render"
)

// Host parameters that override the "data" configuration. Each binding
// returns the configuration field the parameter writes to.
var (
	stringParams = map[string]func(c *config.Config) *string{
		"filename":                func(c *config.Config) *string { return &c.Filename },
		"objectpath":              func(c *config.Config) *string { return &c.ObjectPath },
		"nameprefix":              func(c *config.Config) *string { return &c.NamePrefix },
		"velocity_name":           func(c *config.Config) *string { return &c.Velocity.VelocityName },
		"acceleration_name":       func(c *config.Config) *string { return &c.Velocity.AccelerationName },
		"reference_position_name": func(c *config.Config) *string { return &c.Ref.PositionName },
		"reference_normal_name":   func(c *config.Config) *string { return &c.Ref.NormalName },
		"reference_filename":      func(c *config.Config) *string { return &c.Ref.Filename },
		"radius_name":             func(c *config.Config) *string { return &c.Shape.RadiusName },
	}

	floatParams = map[string]func(c *config.Config) *float64{
		"frame":          func(c *config.Config) *float64 { return &c.Time.Frame },
		"fps":            func(c *config.Config) *float64 { return &c.Time.FPS },
		"speed":          func(c *config.Config) *float64 { return &c.Time.Speed },
		"offset":         func(c *config.Config) *float64 { return &c.Time.Offset },
		"shutter_open":   func(c *config.Config) *float64 { return &c.Motion.ShutterOpen },
		"shutter_close":  func(c *config.Config) *float64 { return &c.Motion.ShutterClose },
		"velocity_scale": func(c *config.Config) *float64 { return &c.Velocity.Scale },
		"bounds_padding": func(c *config.Config) *float64 { return &c.Shape.BoundsPadding },
		"radius_min":     func(c *config.Config) *float64 { return &c.Shape.RadiusMin },
		"radius_max":     func(c *config.Config) *float64 { return &c.Shape.RadiusMax },
		"radius_scale":   func(c *config.Config) *float64 { return &c.Shape.RadiusScale },
		"width_min":      func(c *config.Config) *float64 { return &c.Shape.WidthMin },
		"width_max":      func(c *config.Config) *float64 { return &c.Shape.WidthMax },
		"width_scale":    func(c *config.Config) *float64 { return &c.Shape.WidthScale },
		"step_size":      func(c *config.Config) *float64 { return &c.Shape.StepSize },
	}

	// Frames that stay unset unless given.
	optionalFloatParams = map[string]func(c *config.Config) **float64{
		"start_frame":     func(c *config.Config) **float64 { return &c.Time.StartFrame },
		"end_frame":       func(c *config.Config) **float64 { return &c.Time.EndFrame },
		"reference_frame": func(c *config.Config) **float64 { return &c.Ref.Frame },
	}

	intParams = map[string]func(c *config.Config) *int{
		"motion_samples":            func(c *config.Config) *int { return &c.Motion.MotionSamples },
		"expand_samples_iterations": func(c *config.Config) *int { return &c.Motion.ExpandSamplesIterations },
		"nurbs_sample_rate":         func(c *config.Config) *int { return &c.Shape.NurbsSampleRate },
	}

	boolParams = map[string]func(c *config.Config) *bool{
		"preserve_start_frame":      func(c *config.Config) *bool { return &c.Time.PreserveStartFrame },
		"relative_samples":          func(c *config.Config) *bool { return &c.Motion.RelativeSamples },
		"optimize_samples":          func(c *config.Config) *bool { return &c.Motion.OptimizeSamples },
		"ignore_deform_blur":        func(c *config.Config) *bool { return &c.Motion.IgnoreDeformBlur },
		"ignore_transform_blur":     func(c *config.Config) *bool { return &c.Motion.IgnoreTransformBlur },
		"ignore_visibility":         func(c *config.Config) *bool { return &c.Filters.IgnoreVisibility },
		"ignore_transforms":         func(c *config.Config) *bool { return &c.Filters.IgnoreTransforms },
		"ignore_instances":          func(c *config.Config) *bool { return &c.Filters.IgnoreInstances },
		"ignore_nurbs":              func(c *config.Config) *bool { return &c.Filters.IgnoreNurbs },
		"force_velocity_blur":       func(c *config.Config) *bool { return &c.Velocity.ForceVelocityBlur },
		"output_reference":          func(c *config.Config) *bool { return &c.Ref.OutputReference },
		"read_object_attributes":    func(c *config.Config) *bool { return &c.Attribs.ReadObject },
		"read_primitive_attributes": func(c *config.Config) *bool { return &c.Attribs.ReadPrimitive },
		"read_point_attributes":     func(c *config.Config) *bool { return &c.Attribs.ReadPoint },
		"read_vertex_attributes":    func(c *config.Config) *bool { return &c.Attribs.ReadVertex },
		"reverse_winding":           func(c *config.Config) *bool { return &c.Shape.ReverseWinding },
		"verbose":                   func(c *config.Config) *bool { return &c.Verbose },
	}

	listParams = map[string]func(c *config.Config) *[]string{
		"demote_to_object_attribute":   func(c *config.Config) *[]string { return &c.Attribs.ForceConstant },
		"ignore_attributes":            func(c *config.Config) *[]string { return &c.Attribs.Ignore },
		"attribute_prefices_to_remove": func(c *config.Config) *[]string { return &c.Attribs.PrefixesToRemove },
		"compute_tangents":             func(c *config.Config) *[]string { return &c.Attribs.ComputeTangents },
		"override_attributes":          func(c *config.Config) *[]string { return &c.OverrideAttributes },
	}
)

// ReadConfig builds the configuration of a procedural node: the "data"
// parameter holds a YAML configuration, and every other set parameter
// overrides the matching setting.
func ReadConfig(node *render.Node) (*config.Config, error) {
	cfg := config.Default()
	if v, ok := node.Param("data"); ok && strings.TrimSpace(v.String) != "" {
		var err error
		cfg, err = config.LoadBytes([]byte(v.String), config.FormatYAML)
		if err != nil {
			return nil, fmt.Errorf("%s: reading data: %w", node.Name(), err)
		}
	}

	for name, field := range stringParams {
		if v, ok := node.Param(name); ok {
			*field(cfg) = v.String
		}
	}
	for name, field := range floatParams {
		if v, ok := node.Param(name); ok {
			*field(cfg) = float64(v.Float())
		}
	}
	for name, field := range optionalFloatParams {
		if v, ok := node.Param(name); ok {
			f := float64(v.Float())
			*field(cfg) = &f
		}
	}
	for name, field := range intParams {
		if v, ok := node.Param(name); ok {
			*field(cfg) = int(v.Int)
		}
	}
	for name, field := range boolParams {
		if v, ok := node.Param(name); ok {
			*field(cfg) = v.Bool
		}
	}
	for name, field := range listParams {
		if a := node.Array(name); a != nil && a.Type == render.TypeString {
			*field(cfg) = append([]string(nil), a.Strings...)
		}
	}

	if v, ok := node.Param("cycle"); ok {
		cfg.Time.Cycle = config.CycleType(v.String)
	}
	if v, ok := node.Param("reference_source"); ok {
		cfg.Ref.Source = config.ReferenceSource(v.String)
	}
	if v, ok := node.Param("attributes_frame"); ok {
		cfg.Attribs.Frame = config.AttributesFrame(v.String)
	}
	if a := node.Array("samples"); a != nil && a.Type == render.TypeFloat {
		cfg.Motion.Samples = make([]float64, len(a.Floats))
		for i, f := range a.Floats {
			cfg.Motion.Samples[i] = float64(f)
		}
	}

	cfg.Filename = normalizeFilePath(cfg.Filename)
	cfg.Ref.Filename = normalizeFilePath(cfg.Ref.Filename)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", node.Name(), err)
	}
	return cfg, nil
}

// ReadOverrides reads the shape settings stored on the procedural node.
func ReadOverrides(node *render.Node) config.NodeOverrides {
	o := config.DefaultNodeOverrides()
	if v, ok := node.Param("subdiv_type"); ok {
		o.SubdivType = v.String
	}
	if v, ok := node.Param("subdiv_iterations"); ok {
		o.SubdivIterations = int(v.Int)
	}
	if v, ok := node.Param("smoothing"); ok {
		o.Smoothing = v.Bool
	}
	if v, ok := node.Param("disp_map"); ok {
		o.DispMap = v.String
	}
	return o
}

// normalizeFilePath uses forward slashes and drops drive letters outside
// Windows.
func normalizeFilePath(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")
	if runtime.GOOS == "windows" {
		return path
	}
	if len(path) >= 2 && path[1] == ':' {
		if c := path[0]; (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			return path[2:]
		}
	}
	return path
}

package render

// Node types created by the procedural.
const (
	TypePolymesh   = "polymesh"
	TypePoints     = "points"
	TypeCurves     = "curves"
	TypeBox        = "box"
	TypeGInstance  = "ginstance"
	TypeProcedural = "abcproc"
)

var commonParams = []string{
	"name", "matrix", "disable", "visibility", "sidedness", "receive_shadows", "self_shadows",
	"invert_normals", "opaque", "matte", "use_light_group", "light_group", "use_shadow_group",
	"shadow_group", "shader", "disp_map", "id", "motion_start", "motion_end",
}

var typeParams = map[string][]string{
	TypePolymesh: {
		"nsides", "vidxs", "polygon_holes", "nidxs", "uvidxs", "crease_idxs", "crease_sharpness",
		"shidxs", "vlist", "nlist", "uvlist", "smoothing", "subdiv_type", "subdiv_iterations",
		"subdiv_adaptive_metric", "subdiv_adaptive_error", "subdiv_uv_smoothing", "disp_padding",
		"disp_height", "disp_zero_value", "disp_autobump",
	},
	TypePoints:    {"points", "radius", "aspect", "rotation", "mode", "min_pixel_width", "step_size"},
	TypeCurves:    {"num_points", "points", "radius", "orientations", "basis", "mode", "min_pixel_width", "uvs"},
	TypeBox:       {"min", "max", "step_size"},
	TypeGInstance: {"node", "inherit_xform"},
	TypeProcedural: {
		"dso", "data", "load_at_init", "min", "max",
		"filename", "objectpath", "nameprefix", "frame", "fps", "cycle", "start_frame", "end_frame",
		"speed", "offset", "preserve_start_frame", "samples", "relative_samples", "motion_samples",
		"shutter_open", "shutter_close", "ignore_deform_blur", "ignore_transform_blur",
		"ignore_visibility", "ignore_transforms", "ignore_instances", "ignore_nurbs",
		"velocity_scale", "velocity_name", "acceleration_name", "force_velocity_blur",
		"output_reference", "reference_source", "reference_position_name", "reference_normal_name",
		"reference_filename", "reference_frame", "demote_to_object_attribute",
		"expand_samples_iterations", "optimize_samples", "bounds_padding", "override_attributes",
		"read_object_attributes", "read_primitive_attributes", "read_point_attributes",
		"read_vertex_attributes", "attributes_frame", "attribute_prefices_to_remove",
		"ignore_attributes", "compute_tangents", "radius_name", "radius_min", "radius_max",
		"radius_scale", "width_min", "width_max", "width_scale", "nurbs_sample_rate", "step_size",
		"reverse_winding", "subdiv_type", "subdiv_iterations", "smoothing", "verbose",
	},
}

var builtins = func() map[string]map[string]struct{} {
	out := map[string]map[string]struct{}{}
	for typ, params := range typeParams {
		set := map[string]struct{}{}
		for _, p := range commonParams {
			set[p] = struct{}{}
		}
		for _, p := range params {
			set[p] = struct{}{}
		}
		out[typ] = set
	}
	return out
}()

// IsBuiltin reports whether nodes of type typ define the parameter. Unknown
// node types only have the common parameters.
func IsBuiltin(typ, param string) bool {
	if set, ok := builtins[typ]; ok {
		_, found := set[param]
		return found
	}
	for _, p := range commonParams {
		if p == param {
			return true
		}
	}
	return false
}

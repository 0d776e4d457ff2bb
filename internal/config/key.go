package config

import (
	"fmt"
	"strings"
)

// ShapeKey identifies the geometry a shape path expands to under this
// configuration and the host node overrides o. Two procedurals with the
// same key build identical geometry and may share one master node.
func (c *Config) ShapeKey(path string, o NodeOverrides) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%s", c.Filename, path)
	fmt.Fprintf(&b, "|f=%g fps=%g c=%s s=%g o=%g", c.Time.Frame, c.Time.FPS, c.Time.Cycle, c.Time.Speed, c.Time.Offset)
	if c.Time.StartFrame != nil && c.Time.EndFrame != nil {
		fmt.Fprintf(&b, " r=%g:%g", *c.Time.StartFrame, *c.Time.EndFrame)
	}
	fmt.Fprintf(&b, "|m=%v rel=%t n=%d sh=%g:%g x=%d opt=%t db=%t",
		c.Motion.Samples, c.Motion.RelativeSamples, c.Motion.MotionSamples,
		c.Motion.ShutterOpen, c.Motion.ShutterClose, c.Motion.ExpandSamplesIterations,
		c.Motion.OptimizeSamples, c.Motion.IgnoreDeformBlur)
	fmt.Fprintf(&b, "|a=%t%t%t%t %s %v %v %v %v",
		c.Attribs.ReadObject, c.Attribs.ReadPrimitive, c.Attribs.ReadPoint, c.Attribs.ReadVertex,
		c.Attribs.Frame, c.Attribs.PrefixesToRemove, c.Attribs.Ignore, c.Attribs.ForceConstant, c.Attribs.ComputeTangents)
	fmt.Fprintf(&b, "|fl=%t%t%t%t",
		c.Filters.IgnoreVisibility, c.Filters.IgnoreTransforms, c.Filters.IgnoreInstances, c.Filters.IgnoreNurbs)
	fmt.Fprintf(&b, "|v=%g %q %q %t",
		c.Velocity.Scale, c.Velocity.VelocityName, c.Velocity.AccelerationName, c.Velocity.ForceVelocityBlur)
	fmt.Fprintf(&b, "|r=%t %s %s %q %q", c.Ref.OutputReference, c.Ref.Source, c.Ref.Filename,
		c.Ref.PositionName, c.Ref.NormalName)
	if c.Ref.Frame != nil {
		fmt.Fprintf(&b, " rf=%g", *c.Ref.Frame)
	}
	fmt.Fprintf(&b, "|s=%q %g:%g:%g %g:%g:%g %d %g %g %t",
		c.Shape.RadiusName, c.Shape.RadiusMin, c.Shape.RadiusMax, c.Shape.RadiusScale,
		c.Shape.WidthMin, c.Shape.WidthMax, c.Shape.WidthScale,
		c.Shape.NurbsSampleRate, c.Shape.StepSize, c.Shape.BoundsPadding, c.Shape.ReverseWinding)
	fmt.Fprintf(&b, "|o=%q %d %t %q", o.SubdivType, o.SubdivIterations, o.Smoothing, o.DispMap)
	return b.String()
}

package config

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var err error
	add := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Time.FPS <= 0 {
		add("fps must be positive, got %g", c.Time.FPS)
	}
	switch c.Time.Cycle {
	case CycleHold, CycleLoop, CycleReverse, CycleBounce:
	default:
		add("unknown cycle %q", c.Time.Cycle)
	}
	if (c.Time.StartFrame == nil) != (c.Time.EndFrame == nil) {
		add("start_frame and end_frame must be set together")
	}
	if c.Motion.MotionSamples < 0 {
		add("motion_samples must not be negative")
	}
	if c.Motion.ExpandSamplesIterations < 0 {
		add("expand_samples_iterations must not be negative")
	}
	if c.Motion.ShutterOpen > c.Motion.ShutterClose {
		add("shutter_open %g is after shutter_close %g", c.Motion.ShutterOpen, c.Motion.ShutterClose)
	}
	switch c.Attribs.Frame {
	case AttributesFrameRender, AttributesFrameShutter, AttributesFrameShutterOpen, AttributesFrameShutterClose:
	default:
		add("unknown attributes_frame %q", c.Attribs.Frame)
	}
	switch c.Ref.Source {
	case ReferenceAttributes, ReferenceAttributesThenFile, ReferenceFile, ReferenceFrame:
	default:
		add("unknown reference_source %q", c.Ref.Source)
	}
	if c.Shape.RadiusMin > c.Shape.RadiusMax {
		add("radius_min %g exceeds radius_max %g", c.Shape.RadiusMin, c.Shape.RadiusMax)
	}
	if c.Shape.WidthMin > c.Shape.WidthMax {
		add("width_min %g exceeds width_max %g", c.Shape.WidthMin, c.Shape.WidthMax)
	}
	if c.Shape.NurbsSampleRate < 1 {
		add("nurbs_sample_rate must be at least 1, got %d", c.Shape.NurbsSampleRate)
	}
	if c.Shape.StepSize < 0 {
		add("step_size must not be negative")
	}

	return err
}

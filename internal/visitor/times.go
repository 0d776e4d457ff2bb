// Package visitor holds the traversal passes of the procedural: time range,
// world matrices, shape counting, procedural generation and shape
// materialization.
package visitor

import (
	"github.com/Faultbox/abcproc/internal/config"
)

// Times are the cache times one expansion reads, in seconds.
type Times struct {
	Render    float64
	Deform    []float64 // keys of deforming geometry
	Transform []float64 // keys of transforms
	Attribs   float64
}

// NewTimes resolves the configured frame and motion samples against rng.
func NewTimes(cfg *config.Config, rng config.FrameRange) Times {
	render := cfg.ComputeTime(cfg.Time.Frame, rng)
	motion := cfg.MotionTimes(rng)
	if len(motion) == 0 {
		motion = []float64{render}
	}

	t := Times{Render: render, Deform: motion, Transform: motion}
	if cfg.Motion.IgnoreDeformBlur {
		t.Deform = []float64{render}
	}
	if cfg.Motion.IgnoreTransformBlur {
		t.Transform = []float64{render}
	}
	t.Attribs = cfg.AttributesTime(render, motion)
	return t
}

// Single reports whether no motion blur is needed for deformations.
func (t Times) Single() bool {
	return len(t.Deform) <= 1
}

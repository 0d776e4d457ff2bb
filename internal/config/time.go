package config

import (
	"math"
	"slices"
)

// FrameRange is an inclusive range of frames. Start > End means unset.
type FrameRange struct {
	Start, End float64
}

// Valid reports whether the range has been set.
func (r FrameRange) Valid() bool {
	return r.Start <= r.End
}

// UnsetRange returns a range that Valid rejects.
func UnsetRange() FrameRange {
	return FrameRange{Start: math.MaxFloat64, End: -math.MaxFloat64}
}

// FrameRange returns the configured frame range, or an unset one.
func (c *Config) FrameRange() FrameRange {
	if c.Time.StartFrame == nil || c.Time.EndFrame == nil {
		return UnsetRange()
	}
	return FrameRange{Start: *c.Time.StartFrame, End: *c.Time.EndFrame}
}

// ComputeTime converts a render frame to a cache time in seconds, applying
// speed, offset and the cycle type against rng.
func (c *Config) ComputeTime(frame float64, rng FrameRange) float64 {
	extraOffset := 0.0
	if c.Time.PreserveStartFrame && rng.Valid() && math.Abs(c.Time.Speed) > 0.0001 {
		extraOffset = rng.Start * (c.Time.Speed - 1) / c.Time.Speed
	}

	invFps := 1 / c.Time.FPS
	t := c.Time.Speed * invFps * (frame - (c.Time.Offset + extraOffset))

	if !rng.Valid() {
		return t
	}

	startTime := invFps * rng.Start
	endTime := invFps * rng.End
	playTime := endTime - startTime
	const eps = 0.001

	outside := t < startTime-eps || t > endTime+eps

	// fraction of the current cycle and the cycle index
	cycle := func() (float64, int) {
		offset := (t - startTime) / playTime
		n := math.Floor(offset)
		return math.Abs(offset - n), int(n)
	}

	switch c.Time.Cycle {
	case CycleLoop:
		if outside && playTime > 0 {
			f, _ := cycle()
			return startTime + f*playTime
		}
	case CycleReverse:
		switch {
		case playTime <= 0:
			return startTime
		case t > startTime+eps && t < endTime-eps:
			f, _ := cycle()
			return endTime - f*playTime
		case t < startTime+eps:
			return endTime
		default:
			return startTime
		}
	case CycleBounce:
		if outside && playTime > 0 {
			f, n := cycle()
			if n%2 == 0 {
				return startTime + f*playTime
			}
			return endTime - f*playTime
		}
	}

	// hold, and every mode with an empty range
	if t < startTime-eps {
		return startTime
	}
	if t > endTime+eps {
		return endTime
	}
	return t
}

// MotionTimes returns the sorted, de-duplicated motion sample times for the
// configured frame.
func (c *Config) MotionTimes(rng FrameRange) []float64 {
	m := c.Motion
	var frames []float64

	switch {
	case len(m.Samples) > 0:
		for _, s := range m.Samples {
			if m.RelativeSamples {
				s += c.Time.Frame
			}
			frames = append(frames, s)
		}
	case m.MotionSamples > 1:
		open := c.Time.Frame + m.ShutterOpen
		closing := c.Time.Frame + m.ShutterClose
		for i := 0; i < m.MotionSamples; i++ {
			frames = append(frames, open+(closing-open)*float64(i)/float64(m.MotionSamples-1))
		}
	default:
		frames = []float64{c.Time.Frame}
	}

	times := make([]float64, 0, len(frames))
	for _, f := range frames {
		times = append(times, c.ComputeTime(f, rng))
	}
	slices.Sort(times)
	times = slices.Compact(times)

	for i := 0; i < m.ExpandSamplesIterations && len(times) > 1; i++ {
		expanded := make([]float64, 0, 2*len(times)-1)
		for j, t := range times {
			if j > 0 {
				expanded = append(expanded, 0.5*(times[j-1]+t))
			}
			expanded = append(expanded, t)
		}
		times = expanded
	}

	if m.OptimizeSamples {
		times = optimizeTimes(times)
	}
	return times
}

// optimizeTimes drops samples closer than 1e-4s to the previous kept one.
func optimizeTimes(times []float64) []float64 {
	const minDelta = 0.0001
	out := times[:0:0]
	for _, t := range times {
		if len(out) > 0 && t-out[len(out)-1] < minDelta {
			continue
		}
		out = append(out, t)
	}
	return out
}

// AttributesTime returns the time user attributes are read at.
func (c *Config) AttributesTime(renderTime float64, motionTimes []float64) float64 {
	if len(motionTimes) == 0 {
		return renderTime
	}
	first := motionTimes[0]
	last := motionTimes[len(motionTimes)-1]

	switch c.Attribs.Frame {
	case AttributesFrameShutter:
		return 0.5 * (first + last)
	case AttributesFrameShutterOpen:
		return first
	case AttributesFrameShutterClose:
		return last
	default:
		return renderTime
	}
}

package cache

import (
	"math"
	"sort"
)

// SamplingType describes how sample indices map to times.
type SamplingType int

const (
	// Uniform samples start at Times[0] and are Step apart.
	Uniform SamplingType = iota
	// Cyclic repeats the offsets in Times every Step seconds.
	Cyclic
	// Acyclic lists every sample time explicitly.
	Acyclic
)

// TimeSampling maps sample indices of a property to times in seconds.
type TimeSampling struct {
	Type  SamplingType
	Step  float64   // uniform step or cycle duration
	Times []float64 // uniform: start time; cyclic: times of one cycle; acyclic: all times
}

// UniformSampling returns samples at start, start+step, ...
func UniformSampling(start, step float64) TimeSampling {
	return TimeSampling{Type: Uniform, Step: step, Times: []float64{start}}
}

// AcyclicSampling returns samples at the given increasing times.
func AcyclicSampling(times ...float64) TimeSampling {
	return TimeSampling{Type: Acyclic, Times: times}
}

// CyclicSampling repeats offsets every cycle seconds.
func CyclicSampling(cycle float64, times ...float64) TimeSampling {
	return TimeSampling{Type: Cyclic, Step: cycle, Times: times}
}

// SampleTime returns the time of sample i.
func (ts TimeSampling) SampleTime(i int) float64 {
	switch ts.Type {
	case Cyclic:
		n := len(ts.Times)
		if n == 0 {
			return 0
		}
		return float64(i/n)*ts.Step + ts.Times[i%n]
	case Acyclic:
		if len(ts.Times) == 0 {
			return 0
		}
		if i >= len(ts.Times) {
			i = len(ts.Times) - 1
		}
		return ts.Times[i]
	default:
		start := 0.0
		if len(ts.Times) > 0 {
			start = ts.Times[0]
		}
		return start + float64(i)*ts.Step
	}
}

// FloorIndex returns the last of n samples at or before t (0 when t
// precedes every sample) and its time.
func (ts TimeSampling) FloorIndex(t float64, n int) (int, float64) {
	if n <= 0 {
		return 0, 0
	}
	i := sort.Search(n, func(i int) bool { return ts.SampleTime(i) > t }) - 1
	if i < 0 {
		i = 0
	}
	return i, ts.SampleTime(i)
}

// CeilIndex returns the first of n samples at or after t (the last sample
// when t follows every sample) and its time.
func (ts TimeSampling) CeilIndex(t float64, n int) (int, float64) {
	if n <= 0 {
		return 0, 0
	}
	i := sort.Search(n, func(i int) bool { return ts.SampleTime(i) >= t })
	if i >= n {
		i = n - 1
	}
	return i, ts.SampleTime(i)
}

// NearIndex returns the sample of n closest to t.
func (ts TimeSampling) NearIndex(t float64, n int) (int, float64) {
	i0, t0 := ts.FloorIndex(t, n)
	i1, t1 := ts.CeilIndex(t, n)
	if math.Abs(t1-t) < math.Abs(t-t0) {
		return i1, t1
	}
	return i0, t0
}

// Range returns the time of the first and last of n samples.
func (ts TimeSampling) Range(n int) (float64, float64) {
	if n <= 0 {
		return 0, 0
	}
	return ts.SampleTime(0), ts.SampleTime(n - 1)
}

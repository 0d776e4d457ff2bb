// Package sample resolves cached property samples around a requested time.
package sample

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/pkg/math"
)

// Epsilon is the distance under which a time matches a sample exactly.
const Epsilon = 1e-4

var (
	// ErrNoSamples is returned when a list holds no sample.
	ErrNoSamples = errors.New("no samples")
	// ErrSizeMismatch is returned when two samples do not have the same
	// number of elements and cannot be blended.
	ErrSizeMismatch = errors.New("sample size mismatch")
)

// TimeSample is one property sample.
type TimeSample[T any] struct {
	Time  float64
	Data  T
	Valid bool
}

// TimeSampleList holds samples ordered by strictly increasing time.
type TimeSampleList[T any] struct {
	samples []TimeSample[T]
}

// Len returns the number of samples.
func (l *TimeSampleList[T]) Len() int {
	return len(l.samples)
}

// At returns sample i.
func (l *TimeSampleList[T]) At(i int) TimeSample[T] {
	return l.samples[i]
}

// Times returns the sample times in order.
func (l *TimeSampleList[T]) Times() []float64 {
	out := make([]float64, len(l.samples))
	for i, s := range l.samples {
		out[i] = s.Time
	}
	return out
}

// Reset drops every sample.
func (l *TimeSampleList[T]) Reset() {
	l.samples = l.samples[:0]
}

// Insert adds a sample, replacing any sample already within Epsilon of t.
func (l *TimeSampleList[T]) Insert(t float64, data T) {
	i := sort.Search(len(l.samples), func(i int) bool { return l.samples[i].Time > t-Epsilon })
	if i < len(l.samples) && l.samples[i].Time < t+Epsilon {
		l.samples[i] = TimeSample[T]{Time: t, Data: data, Valid: true}
		return
	}
	l.samples = append(l.samples, TimeSample[T]{})
	copy(l.samples[i+1:], l.samples[i:])
	l.samples[i] = TimeSample[T]{Time: t, Data: data, Valid: true}
}

// Update reads the samples of p covering [tmin, tmax]: every sample inside
// the interval plus the samples bracketing both ends. Without appendSamples
// the list is cleared first. Constant properties yield a single sample.
func (l *TimeSampleList[T]) Update(p *cache.Property[T], tmin, tmax float64, appendSamples bool) error {
	if !appendSamples {
		l.Reset()
	}
	n := p.NumSamples()
	if n == 0 {
		if l.Len() == 0 {
			return ErrNoSamples
		}
		return nil
	}
	if tmax < tmin {
		return fmt.Errorf("invalid interval [%g, %g]", tmin, tmax)
	}
	if p.IsConstant() {
		l.Insert(p.Time(0), p.At(0))
		return nil
	}

	i0, _ := p.Sampling.FloorIndex(tmin, n)
	i1, _ := p.Sampling.CeilIndex(tmax, n)
	for i := i0; i <= i1; i++ {
		l.Insert(p.Time(i), p.At(i))
	}
	return nil
}

// GetSamples returns the samples bracketing t and the blend weight of the
// second one. When t matches a sample, lies outside the list or the list
// holds one sample, both samples are the same and the weight is 0.
// The weight is always in [0, 1).
func (l *TimeSampleList[T]) GetSamples(t float64) (s0, s1 TimeSample[T], blend float64, err error) {
	n := len(l.samples)
	if n == 0 {
		return s0, s1, 0, ErrNoSamples
	}
	if n == 1 || t <= l.samples[0].Time+Epsilon {
		return l.samples[0], l.samples[0], 0, nil
	}
	if t >= l.samples[n-1].Time-Epsilon {
		return l.samples[n-1], l.samples[n-1], 0, nil
	}

	// first sample after t
	i := sort.Search(n, func(i int) bool { return l.samples[i].Time > t })
	a, b := l.samples[i-1], l.samples[i]
	switch {
	case t-a.Time < Epsilon:
		return a, a, 0, nil
	case b.Time-t < Epsilon:
		return b, b, 0, nil
	}
	w := (t - a.Time) / (b.Time - a.Time)
	return a, b, math.Clamp(w, 0, 1), nil
}

// Nearest returns the sample closest to t.
func (l *TimeSampleList[T]) Nearest(t float64) (TimeSample[T], error) {
	s0, s1, w, err := l.GetSamples(t)
	if err != nil {
		return s0, err
	}
	if w > 0.5 {
		return s1, nil
	}
	return s0, nil
}

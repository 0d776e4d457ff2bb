package visitor

import (
	"github.com/Faultbox/abcproc/internal/attr"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/sample"
	"github.com/Faultbox/abcproc/pkg/math"
	"go.uber.org/zap"
)

// Channel names tried after the configured one, in order.
var (
	VelocityNames     = []string{"velocity", "vel", "v"}
	AccelerationNames = []string{"acceleration", "accel", "a"}
)

// candidateNames returns the configured name followed by the defaults.
func candidateNames(configured string, defaults []string) []string {
	if configured == "" {
		return defaults
	}
	return append([]string{configured}, defaults...)
}

// findChannel reads the first point level vector parameter of names that
// holds np elements at t. The channel is removed from the pass-through
// point attributes of set.
func findChannel(n *cache.Node, cfg *config.Config, set *attr.Set, names []string, t float64, np int) []math.Vec3 {
	for _, name := range names {
		g := n.GeomParam(name)
		if g == nil || attr.LevelOf(g.Scope) != attr.PointLevel {
			continue
		}
		a, err := attr.ReadGeomParam(g, t, false)
		if err != nil || a.Type != render.TypeVector || a.Count != np {
			logger.Log.Debug("rejecting motion channel",
				zap.String("node", n.Path), zap.String("name", name), zap.Int("points", np))
			continue
		}
		if set != nil {
			set.Point.Take(cfg.CleanAttribName(name))
		}
		out := make([]math.Vec3, np)
		for i := range out {
			out[i] = math.Vec3FromSlice(a.Floats, i)
		}
		return out
	}
	return nil
}

// motionChannels resolves the velocity and acceleration of np points read
// at t. Schema velocities are used when no named channel matches.
func motionChannels(n *cache.Node, cfg *config.Config, set *attr.Set, t float64, np int, schemaVel []math.Vec3) (vel, acc []math.Vec3) {
	vel = findChannel(n, cfg, set, candidateNames(cfg.Velocity.VelocityName, VelocityNames), t, np)
	if vel == nil && len(schemaVel) == np {
		vel = schemaVel
	}
	if vel == nil {
		return nil, nil
	}
	acc = findChannel(n, cfg, set, candidateNames(cfg.Velocity.AccelerationName, AccelerationNames), t, np)
	return vel, acc
}

// extrapolateKeys moves base, sampled at baseTime, to every key time.
func extrapolateKeys(base []math.Vec3, baseTime float64, vel, acc []math.Vec3, times []float64, scale float64) [][]math.Vec3 {
	keys := make([][]math.Vec3, len(times))
	for k, t := range times {
		dt := float32((t - baseTime) * scale)
		p := make([]math.Vec3, len(base))
		for i, b := range base {
			var a math.Vec3
			if acc != nil {
				a = acc[i]
			}
			p[i] = b.Extrapolate(vel[i], a, dt)
		}
		keys[k] = p
	}
	return keys
}

// blendKeys interpolates positions at every key time. Keys whose bracketing
// samples differ in size fall back to the nearest sample.
func blendKeys[T any](n *cache.Node, l *sample.TimeSampleList[T], get func(T) []math.Vec3, times []float64) ([][]math.Vec3, error) {
	keys := make([][]math.Vec3, len(times))
	for k, t := range times {
		s0, s1, w, err := l.GetSamples(t)
		if err != nil {
			return nil, err
		}
		p, err := sample.BlendVec3(get(s0.Data), get(s1.Data), w)
		if err != nil {
			logger.Log.Warn("cannot blend positions, using nearest sample",
				zap.String("node", n.Path), zap.Float64("time", t), zap.Error(err))
			p = get(s0.Data)
			if w > 0.5 {
				p = get(s1.Data)
			}
		}
		keys[k] = p
	}
	return keys, nil
}

// sameCounts reports whether every key holds the same number of points.
func sameCounts(keys [][]math.Vec3) bool {
	for _, k := range keys[1:] {
		if len(k) != len(keys[0]) {
			return false
		}
	}
	return true
}

// readSamples fills l with the samples of p needed for times and tr.
func readSamples[T any](l *sample.TimeSampleList[T], p *cache.Property[T], times []float64, tr float64) error {
	tmin, tmax := tr, tr
	for _, t := range times {
		tmin = min(tmin, t)
		tmax = max(tmax, t)
	}
	return l.Update(p, tmin, tmax, false)
}

package visitor

import (
	"errors"
	"fmt"

	"github.com/Faultbox/abcproc/internal/attr"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/scene"
	"github.com/Faultbox/abcproc/pkg/math"
)

// ErrNoReference is returned when no rest pose can be resolved for a shape.
var ErrNoReference = errors.New("no reference")

// Output names of the rest pose.
const (
	RefPositionName = "Pref"
	RefNormalName   = "Nref"
	RefMatrixName   = "Mref"
)

// Reference is where rest poses are read from: a separate scene, or the
// render scene at another time.
type Reference struct {
	Scene *cache.Scene
	Time  float64

	// Matrix replaces the world matrix of the rest pose when set.
	Matrix *math.Mat4
}

// RefTime returns the time rest poses are read at: the configured frame, or
// the start of the animated range of s.
func RefTime(cfg *config.Config, s *cache.Scene) float64 {
	if cfg.Ref.Frame != nil {
		return *cfg.Ref.Frame / cfg.Time.FPS
	}
	r := NewTimeRange()
	scene.Visit(s, r)
	if start, _, ok := r.Range(); ok {
		return start
	}
	return 0
}

// restPose holds the reference positions and optional normals of a shape.
type restPose struct {
	P []math.Vec3
	N []math.Vec3
}

// fromAttributes takes the rest pose out of the point attributes.
func fromAttributes(cfg *config.Config, set *attr.Set, np int) (restPose, error) {
	var out restPose
	take := func(name string) []math.Vec3 {
		a, ok := set.Point[name]
		if !ok || a.Type != render.TypeVector || a.Count != np {
			return nil
		}
		delete(set.Point, name)
		vs := make([]math.Vec3, np)
		for i := range vs {
			vs[i] = math.Vec3FromSlice(a.Floats, i)
		}
		return vs
	}
	out.P = take(cfg.Ref.PositionName)
	if out.P == nil {
		return out, fmt.Errorf("no %q point attribute: %w", cfg.Ref.PositionName, ErrNoReference)
	}
	out.N = take(cfg.Ref.NormalName)
	return out, nil
}

// fromScene reads the rest positions of path in the reference scene and
// moves them to world space.
func (r *Reference) fromScene(path string, np int) (restPose, error) {
	var out restPose
	if r == nil || r.Scene == nil {
		return out, fmt.Errorf("no reference scene: %w", ErrNoReference)
	}
	n, err := r.Scene.Find(path)
	if err != nil {
		return out, fmt.Errorf("%s: %w", path, ErrNoReference)
	}
	p := positionsAt(r.Scene.Master(n), r.Time)
	if len(p) != np {
		return out, fmt.Errorf("%s: %d reference points for %d: %w", path, len(p), np, ErrNoReference)
	}

	world := WorldMatrix(r.Scene, n, r.Time)
	if r.Matrix != nil {
		world = *r.Matrix
	}
	out.P = make([]math.Vec3, np)
	for i, v := range p {
		out.P[i] = world.TransformPoint(v)
	}
	return out, nil
}

// resolveRest picks the rest pose of a shape following the configured
// source.
func resolveRest(cfg *config.Config, ref *Reference, set *attr.Set, path string, np int) (restPose, error) {
	switch cfg.Ref.Source {
	case config.ReferenceAttributes:
		return fromAttributes(cfg, set, np)
	case config.ReferenceAttributesThenFile:
		if rp, err := fromAttributes(cfg, set, np); err == nil {
			return rp, nil
		}
		return ref.fromScene(path, np)
	default:
		return ref.fromScene(path, np)
	}
}

// setRest writes the rest pose on node.
func setRest(node *render.Node, rp restPose) error {
	if err := node.Declare(RefPositionName, "varying VECTOR"); err != nil {
		return err
	}
	if err := node.SetArray(RefPositionName, render.Vec3Array(rp.P)); err != nil {
		return err
	}
	if rp.N == nil {
		return nil
	}
	if err := node.Declare(RefNormalName, "varying VECTOR"); err != nil {
		return err
	}
	return node.SetArray(RefNormalName, render.Vec3Array(rp.N))
}

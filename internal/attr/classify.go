package attr

import (
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"go.uber.org/zap"
)

// Collect reads the user properties and geometry parameters of n at t and
// sorts them into s. Names are cleaned of configured prefixes, ignored names
// are skipped, force constant names are promoted to object attributes and
// face varying UV channels go to s.UVs.
func Collect(n *cache.Node, t float64, cfg *config.Config, s *Set) {
	for _, p := range n.UserProps {
		name := cfg.CleanAttribName(p.Name)
		if cfg.IsIgnored(p.Name, name) || !cfg.Attribs.ReadObject {
			continue
		}
		a, err := ReadUserProp(p, t, true)
		if err != nil {
			logger.Log.Warn("skipping user property",
				zap.String("node", n.Path), zap.String("name", p.Name), zap.Error(err))
			continue
		}
		s.Object[name] = a
	}

	for _, g := range n.GeomParams {
		name := cfg.CleanAttribName(g.Name)
		if cfg.IsIgnored(g.Name, name) {
			continue
		}
		level := LevelOf(g.Scope)
		force := level != ObjectLevel && cfg.IsForceConstant(name)
		if !force && !readLevel(cfg, level) {
			continue
		}

		a, err := ReadGeomParam(g, t, true)
		if err != nil {
			logger.Log.Warn("skipping geometry parameter",
				zap.String("node", n.Path), zap.String("name", g.Name), zap.Error(err))
			continue
		}

		switch {
		case force:
			promoted, err := a.Promote()
			if err != nil {
				logger.Log.Warn("cannot promote attribute to object level",
					zap.String("node", n.Path), zap.String("name", name), zap.Error(err))
				continue
			}
			if cfg.Attribs.ReadObject {
				s.Object[name] = promoted
			}
		case IsUV(g, a):
			s.UVs[name] = a
		default:
			s.Level(level)[name] = a
		}
	}
}

// IsUV reports whether a geometry parameter is a UV set: a face varying 2D
// channel not flagged as something else.
func IsUV(g *cache.GeomParam, a *Attribute) bool {
	return g.Scope == cache.ScopeFaceVarying && !g.NotUV && a.Type == render.TypeVector2
}

func readLevel(cfg *config.Config, l Level) bool {
	switch l {
	case ObjectLevel:
		return cfg.Attribs.ReadObject
	case PrimitiveLevel:
		return cfg.Attribs.ReadPrimitive
	case PointLevel:
		return cfg.Attribs.ReadPoint
	default:
		return cfg.Attribs.ReadVertex
	}
}

// RemoveConflicting drops the attributes of c whose name, or the name of
// their index array, is a builtin parameter of node.
func RemoveConflicting(node *render.Node, c Collection) {
	for _, name := range c.Names() {
		a := c[name]
		if node.IsBuiltin(name) || (a.Class == Indexed && node.IsBuiltin(name+"idxs")) {
			logger.Log.Info("attribute collides with builtin parameter",
				zap.String("node", node.Name()), zap.String("name", name))
			delete(c, name)
		}
	}
}

// RemoveConflicting drops colliding attributes from every collection of s.
func (s *Set) RemoveConflicting(node *render.Node) {
	for _, c := range []Collection{s.Object, s.Primitive, s.Point, s.Vertex} {
		RemoveConflicting(node, c)
	}
}

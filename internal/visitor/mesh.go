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

func meshPositions(s cache.MeshSample) []math.Vec3 { return s.Positions }

// meshInfo is the working state of one mesh.
type meshInfo struct {
	node *cache.Node
	topo cache.MeshSample

	np, nf, nv int
	counts     []uint32
	vidxs      []uint32
	remap      []uint32 // output vertex of every source vertex, nil when unchanged
	keys       [][]math.Vec3
	varying    bool
	baseTime   float64
}

// outIndices reorders per source vertex indices to the output winding.
func (m *meshInfo) outIndices(idx []uint32) []uint32 {
	if m.remap == nil {
		return idx
	}
	out := make([]uint32, len(idx))
	for i, k := range idx {
		out[m.remap[i]] = k
	}
	return out
}

func (v *MakeShape) mesh(n *cache.Node) *render.Node {
	md := n.Mesh
	var l sample.TimeSampleList[cache.MeshSample]
	if err := readSamples(&l, md.Samples, v.times.Deform, v.times.Render); err != nil {
		logger.Log.Warn("skipping mesh", zap.String("node", n.Path), zap.Error(err))
		return nil
	}
	base, err := l.Nearest(v.times.Render)
	if err != nil {
		logger.Log.Warn("skipping mesh", zap.String("node", n.Path), zap.Error(err))
		return nil
	}

	m := &meshInfo{node: n, topo: base.Data, baseTime: base.Time}
	m.np = len(m.topo.Positions)
	m.nf = len(m.topo.FaceCounts)
	m.nv = len(m.topo.FaceIndices)
	if err := checkTopology(m.topo.FaceCounts, m.topo.FaceIndices, m.np); err != nil {
		logger.Log.Warn("skipping mesh", zap.String("node", n.Path), zap.Error(err))
		return nil
	}

	set := v.collect(n, v.times.Attribs)

	m.varying = md.Variance == cache.HeterogeneousTopology || v.cfg.Velocity.ForceVelocityBlur
	if m.varying {
		m.keys = v.velocityKeys(n, set, base.Time, m.topo.Positions, m.topo.Velocities)
	} else {
		m.keys, err = blendKeys(n, &l, meshPositions, v.times.Deform)
		if err != nil || !sameCounts(m.keys) || len(m.keys[0]) != m.np {
			logger.Log.Warn("inconsistent mesh samples, using a single key", zap.String("node", n.Path))
			m.keys = [][]math.Vec3{m.topo.Positions}
		}
	}

	m.counts = toUint32(m.topo.FaceCounts)
	if v.cfg.Shape.ReverseWinding {
		m.vidxs, m.remap = reverseWinding(m.topo.FaceCounts, m.topo.FaceIndices)
	} else {
		m.vidxs = toUint32(m.topo.FaceIndices)
	}

	node := v.create(render.TypePolymesh, n)
	if node == nil {
		return nil
	}
	_ = node.SetArray("nsides", render.UIntArray(m.counts...))
	_ = node.SetArray("vidxs", render.UIntArray(m.vidxs...))
	if err := node.SetArray("vlist", render.Vec3Array(m.keys...)); err != nil {
		logger.Log.Warn("cannot set positions", zap.String("node", n.Path), zap.Error(err))
	}

	subd := n.Kind == cache.KindSubD || v.env.Overrides.Subdivided()
	if subd {
		typ := v.env.Overrides.SubdivType
		if !v.env.Overrides.Subdivided() {
			typ = config.SubdivCatclark
		}
		_ = node.SetString("subdiv_type", typ)
		_ = node.SetInt("subdiv_iterations", int32(max(v.env.Overrides.SubdivIterations, 1)))
	} else {
		v.meshNormals(node, m)
	}

	v.meshUVs(node, m, set)

	if v.cfg.Ref.OutputReference {
		rp, err := resolveRest(v.cfg, v.env.Reference, set, n.Path, m.np)
		if err == nil && rp.N == nil && !subd {
			rp.N = SmoothNormals(rp.P, m.topo.FaceCounts, m.topo.FaceIndices, v.flipNormals())
		}
		if err == nil {
			err = setRest(node, rp)
		}
		if err != nil {
			logger.Log.Warn("no reference pose", zap.String("node", n.Path), zap.Error(err))
		}
	}

	v.setAttributes(node, set, m.nf, m.np, m.nv, m.remap)
	v.finish(node, n, len(m.keys))
	return node
}

// velocityKeys extrapolates the positions of a sample to every deformation
// key, or returns them as a single key without velocities.
func (v *MakeShape) velocityKeys(n *cache.Node, set *attr.Set, baseTime float64, base, schemaVel []math.Vec3) [][]math.Vec3 {
	vel, acc := motionChannels(n, v.cfg, set, baseTime, len(base), schemaVel)
	if vel == nil {
		if len(v.times.Deform) > 1 {
			logger.Log.Info("no velocities for varying topology, disabling deformation blur",
				zap.String("node", n.Path))
		}
		return [][]math.Vec3{base}
	}
	return extrapolateKeys(base, baseTime, vel, acc, v.times.Deform, v.cfg.Velocity.Scale)
}

// meshNormals sets nlist and nidxs from the cached normals or computes
// smooth ones.
func (v *MakeShape) meshNormals(node *render.Node, m *meshInfo) {
	md := m.node.Mesh
	var keys [][]math.Vec3
	var nidxs []uint32

	if md.Normals != nil {
		var err error
		keys, nidxs, err = v.readNormals(m)
		if err != nil {
			logger.Log.Warn("ignoring cached normals", zap.String("node", m.node.Path), zap.Error(err))
			keys = nil
		}
	}
	if keys == nil {
		if !v.env.Overrides.Smoothing {
			return
		}
		for _, p := range m.keys {
			keys = append(keys, SmoothNormals(p, m.topo.FaceCounts, m.topo.FaceIndices, v.flipNormals()))
		}
		nidxs = m.vidxs
	}

	_ = node.SetArray("nlist", render.Vec3Array(keys...))
	_ = node.SetArray("nidxs", render.UIntArray(nidxs...))
	_ = node.SetBool("smoothing", true)
}

// readNormals reads the normals at every key time, one key when the
// samples cannot be matched.
func (v *MakeShape) readNormals(m *meshInfo) ([][]math.Vec3, []uint32, error) {
	g := m.node.Mesh.Normals
	times := v.times.Deform
	if m.varying || len(m.keys) == 1 {
		times = []float64{m.baseTime}
	}

	var keys [][]math.Vec3
	var nidxs []uint32
	for k, t := range times {
		a, err := attr.ReadGeomParam(g, t, !m.varying)
		if err != nil {
			return nil, nil, err
		}
		if a.Type != render.TypeVector {
			return nil, nil, attr.ErrUnsupported
		}
		var idx []uint32
		switch a.Class {
		case attr.Indexed:
			idx = a.Indices
			if idx == nil {
				idx = identity(a.Count)
			}
			if len(idx) != m.nv {
				return nil, nil, attr.ErrCount
			}
			idx = m.outIndices(idx)
		case attr.Varying:
			if a.Count != m.np {
				return nil, nil, attr.ErrCount
			}
			idx = m.vidxs
		default:
			return nil, nil, attr.ErrUnsupported
		}
		vals := vec3s(a)
		if k > 0 && len(vals) != len(keys[0]) {
			logger.Log.Warn("normal count changes between keys, using the first key",
				zap.String("node", m.node.Path))
			keys = keys[:1]
			break
		}
		if k == 0 {
			nidxs = idx
		}
		keys = append(keys, vals)
	}
	// one normal key per position key
	for len(keys) < len(m.keys) {
		keys = append(keys, keys[len(keys)-1])
	}
	return keys, nidxs, nil
}

// meshUVs sets the default UV set, the extra UV sets and their tangents.
func (v *MakeShape) meshUVs(node *render.Node, m *meshInfo, set *attr.Set) {
	md := m.node.Mesh
	var normals []math.Vec3
	tangents := func(name string, uvs []math.Vec2) {
		if !v.cfg.ComputeTangentsFor(name) {
			return
		}
		if normals == nil {
			normals = SmoothNormals(m.keys[0], m.topo.FaceCounts, m.topo.FaceIndices, v.flipNormals())
		}
		t, b := Tangents(m.keys[0], m.topo.FaceCounts, m.topo.FaceIndices, uvs, normals)
		tn, bn := tangentNames(name)
		for _, p := range []struct {
			name string
			vals []math.Vec3
		}{{tn, t}, {bn, b}} {
			err := node.Declare(p.name, "varying VECTOR")
			if err == nil {
				err = node.SetArray(p.name, render.Vec3Array(p.vals))
			}
			if err != nil {
				logger.Log.Warn("cannot set tangents", zap.String("node", node.Name()), zap.String("name", p.name), zap.Error(err))
			}
		}
	}

	if md.UVs != nil {
		a, err := attr.ReadGeomParam(md.UVs, v.times.Render, !m.varying)
		var uvs []math.Vec2
		if err == nil {
			uvs, err = perVertexUVs(a, m)
		}
		if err != nil {
			logger.Log.Warn("ignoring uvs", zap.String("node", m.node.Path), zap.Error(err))
		} else {
			idx := m.vidxs
			if a.Class == attr.Indexed {
				idx = a.Indices
				if idx == nil {
					idx = identity(a.Count)
				}
				idx = m.outIndices(idx)
			}
			_ = node.SetArray("uvlist", render.FloatArray(render.TypeVector2, 1, a.Floats))
			_ = node.SetArray("uvidxs", render.UIntArray(idx...))
			tangents("uv", uvs)
		}
	}

	attr.RemoveConflicting(node, set.UVs)
	for _, name := range set.UVs.Names() {
		a := set.UVs[name]
		uvs, err := perVertexUVs(a, m)
		if err == nil {
			err = a.Set(node, name, m.nv, m.remap)
		}
		if err != nil {
			logger.Log.Warn("ignoring uv set", zap.String("node", m.node.Path), zap.String("name", name), zap.Error(err))
			continue
		}
		tangents(name, uvs)
	}
}

// perVertexUVs returns the UV of every source face vertex.
func perVertexUVs(a *attr.Attribute, m *meshInfo) ([]math.Vec2, error) {
	if a.Type != render.TypeVector2 {
		return nil, attr.ErrUnsupported
	}
	at := func(i uint32) math.Vec2 { return math.Vec2{X: a.Floats[2*i], Y: a.Floats[2*i+1]} }
	out := make([]math.Vec2, m.nv)
	switch a.Class {
	case attr.Indexed:
		if a.Indices == nil {
			if a.Count != m.nv {
				return nil, attr.ErrCount
			}
			for i := range out {
				out[i] = at(uint32(i))
			}
			return out, nil
		}
		if len(a.Indices) != m.nv {
			return nil, attr.ErrCount
		}
		for i, k := range a.Indices {
			out[i] = at(k)
		}
	case attr.Varying:
		if a.Count != m.np {
			return nil, attr.ErrCount
		}
		for i, k := range m.topo.FaceIndices {
			out[i] = at(uint32(k))
		}
	default:
		return nil, attr.ErrUnsupported
	}
	return out, nil
}

func identity(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

func vec3s(a *attr.Attribute) []math.Vec3 {
	out := make([]math.Vec3, a.Elements())
	for i := range out {
		out[i] = math.Vec3FromSlice(a.Floats, i)
	}
	return out
}

// flipNormals reports whether normals computed from the cached winding
// must be negated. Cached faces front the opposite way unless their
// winding is reversed on output.
func (v *MakeShape) flipNormals() bool {
	return !v.cfg.Shape.ReverseWinding
}

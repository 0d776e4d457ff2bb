package visitor

import (
	"slices"
	"testing"

	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/scene"
	"github.com/Faultbox/abcproc/pkg/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quadSample(z float32) cache.MeshSample {
	return cache.MeshSample{
		Positions:   []math.Vec3{{Z: z}, {X: 2, Z: z}, {X: 2, Y: 1, Z: z}, {Y: 1, Z: z}},
		FaceCounts:  []int32{4},
		FaceIndices: []int32{0, 1, 2, 3},
	}
}

func quadScene(t *testing.T) (*cache.Scene, *cache.Node) {
	t.Helper()
	s := cache.NewScene("quad")
	n, err := s.Add(0, "quad", cache.KindMesh)
	require.NoError(t, err)
	n.Mesh = &cache.MeshData{Samples: cache.ConstantProperty("P", quadSample(0))}
	return s, n
}

func TestMeshReverseWinding(t *testing.T) {
	s, n := quadScene(t)
	uvs := cache.Vec2Array(math.Vec2{}, math.Vec2{X: 1}, math.Vec2{X: 1, Y: 1}, math.Vec2{Y: 1})
	n.Mesh.UVs = &cache.GeomParam{
		Name:    "uv",
		Scope:   cache.ScopeFaceVarying,
		Values:  cache.ConstantProperty("uv", uvs),
		Indices: cache.ConstantProperty("uv.indices", []uint32{0, 1, 2, 3}),
	}
	n.GeomParams = []*cache.GeomParam{
		{Name: "nsides", Scope: cache.ScopeUniform, Values: cache.ConstantProperty("nsides", cache.FloatArray(1, "", 5))},
		{
			Name:    "st",
			Scope:   cache.ScopeFaceVarying,
			Values:  cache.ConstantProperty("st", cache.Vec2Array(math.Vec2{}, math.Vec2{X: 1})),
			Indices: cache.ConstantProperty("st.indices", []uint32{0, 0, 1, 1}),
		},
		{Name: "weight", Scope: cache.ScopeVarying, Values: cache.ConstantProperty("weight", cache.FloatArray(1, "", 0, 1, 2, 3))},
	}

	cfg := singleShapeConfig(0)
	cfg.Attribs.ComputeTangents = []string{"uv"}
	node := buildShape(t, s, cfg, "quad").Node

	assert.Equal(t, render.TypePolymesh, node.Type())
	assert.Equal(t, []uint32{4}, node.Array("nsides").UInts)
	assert.Equal(t, []uint32{0, 3, 2, 1}, node.Array("vidxs").UInts)
	assert.Equal(t, []uint32{0, 3, 2, 1}, node.Array("uvidxs").UInts)
	assert.Equal(t, []uint32{0, 3, 2, 1}, node.Array("nidxs").UInts)
	assert.Equal(t, []uint32{0, 1, 1, 0}, node.Array("stidxs").UInts)

	nlist := node.Array("nlist")
	for i := range 4 {
		assertVec(t, math.Vec3{Z: 1}, nlist.Vec3(0, i))
	}

	assert.Equal(t, []string{"bitangent", "st", "tangent", "weight"}, node.Declared())
	d, _ := node.Declaration("weight")
	assert.Equal(t, "varying FLOAT", d.String())
	assertVec(t, math.Vec3{X: 1}, node.Array("tangent").Vec3(0, 2))
}

func TestMeshVelocityBlur(t *testing.T) {
	s, n := quadScene(t)
	n.Mesh.Variance = cache.HeterogeneousTopology
	vel := make([]math.Vec3, 4)
	for i := range vel {
		vel[i] = math.Vec3{X: 24}
	}
	n.GeomParams = []*cache.GeomParam{
		{Name: "v", Scope: cache.ScopeVarying, Values: cache.ConstantProperty("v", cache.Vec3Array("vector", vel...))},
	}

	cfg := singleShapeConfig(0)
	cfg.Motion.MotionSamples = 2
	cfg.Motion.ShutterOpen = -0.5
	cfg.Motion.ShutterClose = 0.5
	node := buildShape(t, s, cfg, "quad").Node

	vlist := node.Array("vlist")
	require.Equal(t, 2, vlist.NumKeys)
	assertVec(t, math.Vec3{X: -0.5}, vlist.Vec3(0, 0))
	assertVec(t, math.Vec3{X: 0.5}, vlist.Vec3(1, 0))
	assert.Equal(t, 2, node.Array("nlist").NumKeys)

	start, _ := node.Param("motion_start")
	end, _ := node.Param("motion_end")
	assert.InDelta(t, -0.5, start.Float(), tol)
	assert.InDelta(t, 0.5, end.Float(), tol)
	assert.NotContains(t, node.Declared(), "v")
}

func TestPointsIDUnion(t *testing.T) {
	s := cache.NewScene("particles")
	n, err := s.Add(0, "pts", cache.KindPoints)
	require.NoError(t, err)

	var s0, s1 cache.PointsSample
	var temp0, temp1 []float64
	for i := 0; i < 100; i++ {
		s0.IDs = append(s0.IDs, uint64(i))
		s0.Positions = append(s0.Positions, math.Vec3{X: float32(i)})
		temp0 = append(temp0, float64(i))
	}
	for i := 119; i >= 0; i-- {
		s1.IDs = append(s1.IDs, uint64(i))
		s1.Positions = append(s1.Positions, math.Vec3{X: float32(i), Y: 1})
		temp1 = append(temp1, float64(10*i))
	}
	sampling := cache.AcyclicSampling(0, 1)
	n.Points = &cache.PointsData{Samples: cache.NewProperty("P", sampling, s0, s1)}
	n.GeomParams = []*cache.GeomParam{{
		Name:   "temp",
		Scope:  cache.ScopeVarying,
		Values: cache.NewProperty("temp", sampling, cache.FloatArray(1, "", temp0...), cache.FloatArray(1, "", temp1...)),
	}}

	node := buildShape(t, s, singleShapeConfig(12), "pts").Node
	points := node.Array("points")
	require.Equal(t, 120, points.NumElements)
	for i := 0; i < 100; i++ {
		assertVec(t, math.Vec3{X: float32(i), Y: 0.5}, points.Vec3(0, i))
	}
	for k := 0; k < 20; k++ {
		assertVec(t, math.Vec3{X: float32(119 - k), Y: 1}, points.Vec3(0, 100+k))
	}

	temp := node.Array("temp")
	require.NotNil(t, temp)
	require.Len(t, temp.Floats, 120)
	assert.Equal(t, float32(42), temp.Floats[42])
	assert.Equal(t, float32(1190), temp.Floats[100])
}

func TestPointsRadius(t *testing.T) {
	s := cache.NewScene("points")
	n, err := s.Add(0, "pts", cache.KindPoints)
	require.NoError(t, err)
	n.Points = &cache.PointsData{
		Samples: cache.ConstantProperty("P", cache.PointsSample{Positions: []math.Vec3{{}, {X: 1}}}),
		Widths:  &cache.GeomParam{Name: "width", Scope: cache.ScopeVarying, Values: cache.ConstantProperty("width", cache.FloatArray(1, "", 2, 4))},
	}

	cfg := singleShapeConfig(0)
	cfg.Shape.RadiusMax = 1.5
	node := buildShape(t, s, cfg, "pts").Node
	assert.Equal(t, []float32{1, 1.5}, node.Array("radius").Floats)
}

func curvesScene(t *testing.T, c cache.CurvesSample, widths *cache.GeomParam) *cache.Scene {
	t.Helper()
	s := cache.NewScene("curves")
	n, err := s.Add(0, "hair", cache.KindCurves)
	require.NoError(t, err)
	n.Curves = &cache.CurvesData{Samples: cache.ConstantProperty("P", c), Widths: widths}
	return s
}

func TestCurvesPeriodicBSpline(t *testing.T) {
	s := curvesScene(t, cache.CurvesSample{
		Positions:   []math.Vec3{{}, {X: 1}, {X: 1, Y: 1}, {Y: 1}},
		NumVertices: []int32{4},
		Type:        cache.CurveCubic,
		Wrap:        cache.Periodic,
		Basis:       cache.BSplineBasis,
	}, &cache.GeomParam{Name: "width", Scope: cache.ScopeVertex, Values: cache.ConstantProperty("width", cache.FloatArray(1, "", 1, 2, 3, 4))})

	node := buildShape(t, s, singleShapeConfig(0), "hair").Node
	assert.Equal(t, render.TypeCurves, node.Type())
	assert.Equal(t, []uint32{7}, node.Array("num_points").UInts)
	basis, _ := node.Param("basis")
	assert.Equal(t, BasisBSpline, basis.String)
	assert.Equal(t, []float32{1, 1.5, 2, 0.5, 1}, node.Array("radius").Floats)
	assertVec(t, math.Vec3{}, node.Array("points").Vec3(0, 4))
}

func TestCurvesNurbs(t *testing.T) {
	s := curvesScene(t, cache.CurvesSample{
		Positions:   []math.Vec3{{}, {X: 1, Y: 1}, {X: 2}, {X: 3, Y: 1}, {X: 4}},
		NumVertices: []int32{5},
		Type:        cache.CurveVariableOrder,
		Orders:      []uint8{4},
		Knots:       []float32{0, 0, 0, 0, 1, 2, 2, 2, 2},
	}, nil)

	node := buildShape(t, s, singleShapeConfig(0), "hair").Node
	assert.Equal(t, []uint32{13}, node.Array("num_points").UInts)
	basis, _ := node.Param("basis")
	assert.Equal(t, BasisCatmullRom, basis.String)
	assert.Equal(t, 13, node.Array("points").NumElements)

	counter := NewCountShapes(0, config.FilterConfig{IgnoreNurbs: true})
	scene.Visit(s, counter)
	assert.Zero(t, counter.NumShapes)
}

func TestRadiusCount(t *testing.T) {
	assert.Equal(t, 7, radiusCount(BasisLinear, 7))
	assert.Equal(t, 3, radiusCount(BasisBezier, 7))
	assert.Equal(t, 5, radiusCount(BasisBSpline, 7))
	assert.Equal(t, 0, radiusCount(BasisCatmullRom, 1))
}

func TestVolumeBox(t *testing.T) {
	s, _ := quadScene(t)
	cfg := singleShapeConfig(0)
	cfg.Shape.StepSize = 0.1
	node := buildShape(t, s, cfg, "quad").Node

	assert.Equal(t, render.TypeBox, node.Type())
	lo, _ := node.Param("min")
	hi, _ := node.Param("max")
	assert.InDeltaSlice(t, []float32{-0.1, -0.1, -0.1}, lo.Floats, tol)
	assert.InDeltaSlice(t, []float32{2.1, 1.1, 0.1}, hi.Floats, tol)
}

func TestMakeProcedurals(t *testing.T) {
	s := loadInstances(t)
	sink := render.NewMemorySink()
	reg := render.NewRegistry(sink)
	proc, err := sink.CreateNode(render.TypeProcedural, "proc", nil)
	require.NoError(t, err)
	require.NoError(t, proc.SetString("dso", "abcproc.so"))
	require.NoError(t, proc.Declare("tag", "constant STRING"))
	require.NoError(t, proc.SetString("tag", "hero"))

	cfg := config.Default()
	cfg.Filename = "instances.yaml"
	cfg.NamePrefix = "p_"
	cfg.OverrideAttributes = []string{"tag"}
	times := NewTimes(cfg, config.UnsetRange())

	v := NewMakeProcedurals(cfg, times, reg, proc, "run-1")
	assert.True(t, scene.Visit(s, v))
	require.Len(t, v.Nodes, 4)

	var names []string
	for _, g := range v.Nodes {
		names = append(names, g.Node.Name())
		assert.Equal(t, proc, g.Node.Parent())
		dso, _ := g.Node.Param("dso")
		assert.Equal(t, "abcproc.so", dso.String)
		tag, _ := g.Node.Param("tag")
		assert.Equal(t, "hero", tag.String)
	}
	assert.Equal(t, []string{"p_root|p_box", "p_root|p_copy", "p_root|p_copy2", "p_particles"}, names)

	copy2 := v.Nodes[2]
	assert.Equal(t, "/root/copy2", copy2.Path)
	assert.Equal(t, "/root/box", copy2.ObjectPath)
	num, _ := copy2.Node.Param("instance_num")
	assert.Equal(t, int32(2), num.Int)
	assert.InDelta(t, 1, copy2.Node.Array("matrix").Matrix(0)[12], tol)

	data, _ := copy2.Node.Param("data")
	shapeCfg, err := config.LoadBytes([]byte(data.String), config.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/root/box", shapeCfg.ObjectPath)
	assert.True(t, shapeCfg.Filters.IgnoreTransforms)
	assert.Empty(t, shapeCfg.NamePrefix)

	hi, _ := v.Nodes[0].Node.Param("max")
	assert.InDeltaSlice(t, []float32{1, 1, 0}, hi.Floats, tol)

	matrices := NewCollectWorldMatrices(cfg.Filters, []float64{0})
	scene.Visit(s, matrices)
	assert.Equal(t, 4, AnnotateReference(v.Nodes, matrices.Matrices))
	mref, ok := copy2.Node.Param(RefMatrixName)
	require.True(t, ok)
	assert.InDelta(t, 1, mref.Floats[12], tol)
}

func TestMeshCachedWindingNormals(t *testing.T) {
	s, _ := quadScene(t)
	cfg := singleShapeConfig(0)
	cfg.Shape.ReverseWinding = false
	node := buildShape(t, s, cfg, "quad").Node

	assert.Equal(t, []uint32{0, 1, 2, 3}, node.Array("vidxs").UInts)
	assert.Equal(t, []uint32{0, 1, 2, 3}, node.Array("nidxs").UInts)
	nlist := node.Array("nlist")
	for i := range 4 {
		assertVec(t, math.Vec3{Z: -1}, nlist.Vec3(0, i))
	}
}

func vecParam(name string, vs ...math.Vec3) *cache.GeomParam {
	return &cache.GeomParam{Name: name, Scope: cache.ScopeVarying, Values: cache.ConstantProperty(name, cache.Vec3Array("vector", vs...))}
}

func TestMotionChannelPriority(t *testing.T) {
	two := func(x float32) []math.Vec3 { return []math.Vec3{{X: x}, {X: x}} }
	tests := []struct {
		name       string
		configured string
		params     []*cache.GeomParam
		schema     []math.Vec3
		want       float32 // X of the chosen velocity, 0 for none
	}{
		{"configured first", "pvel", []*cache.GeomParam{vecParam("velocity", two(1)...), vecParam("pvel", two(5)...)}, two(4), 5},
		{"velocity before vel", "", []*cache.GeomParam{vecParam("v", two(3)...), vecParam("vel", two(2)...), vecParam("velocity", two(1)...)}, two(4), 1},
		{"vel before v", "", []*cache.GeomParam{vecParam("v", two(3)...), vecParam("vel", two(2)...)}, two(4), 2},
		{"v before schema", "", []*cache.GeomParam{vecParam("v", two(3)...)}, two(4), 3},
		{"schema last", "", nil, two(4), 4},
		{"missing configured name", "pvel", []*cache.GeomParam{vecParam("vel", two(2)...)}, nil, 2},
		{"wrong count skipped", "", []*cache.GeomParam{vecParam("velocity", math.Vec3{X: 1}), vecParam("v", two(3)...)}, nil, 3},
		{"schema count mismatch", "", nil, []math.Vec3{{X: 4}}, 0},
		{"nothing", "", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cache.NewScene("motion")
			n, err := s.Add(0, "pts", cache.KindPoints)
			require.NoError(t, err)
			n.GeomParams = append(tt.params, vecParam("accel", two(9)...))

			cfg := config.Default()
			cfg.Velocity.VelocityName = tt.configured
			vel, acc := motionChannels(n, cfg, nil, 0, 2, tt.schema)
			if tt.want == 0 {
				assert.Nil(t, vel)
				assert.Nil(t, acc)
				return
			}
			require.Len(t, vel, 2)
			assert.Equal(t, tt.want, vel[1].X)
			require.Len(t, acc, 2)
			assert.Equal(t, float32(9), acc[0].X)
		})
	}
}

func TestAccelerationNamePriority(t *testing.T) {
	s := cache.NewScene("motion")
	n, err := s.Add(0, "pts", cache.KindPoints)
	require.NoError(t, err)
	n.GeomParams = []*cache.GeomParam{
		vecParam("v", math.Vec3{X: 1}),
		vecParam("a", math.Vec3{X: 3}),
		vecParam("accel", math.Vec3{X: 2}),
		vecParam("myacc", math.Vec3{X: 7}),
	}

	cfg := config.Default()
	_, acc := motionChannels(n, cfg, nil, 0, 1, nil)
	require.Len(t, acc, 1)
	assert.Equal(t, float32(2), acc[0].X)

	cfg.Velocity.AccelerationName = "myacc"
	_, acc = motionChannels(n, cfg, nil, 0, 1, nil)
	require.Len(t, acc, 1)
	assert.Equal(t, float32(7), acc[0].X)
}

func TestExtrapolateKeys(t *testing.T) {
	base := []math.Vec3{{}, {X: 1}}
	vel := []math.Vec3{{X: 1}, {Z: 1}}
	acc := []math.Vec3{{Y: 2}, {}}

	// dt is scaled by 2: p = v*dt + 0.5*a*dt^2
	keys := extrapolateKeys(base, 1, vel, acc, []float64{0.5, 1, 1.5}, 2)
	require.Len(t, keys, 3)
	assertVec(t, math.Vec3{X: -1, Y: 1}, keys[0][0])
	assertVec(t, math.Vec3{}, keys[1][0])
	assertVec(t, math.Vec3{X: 1, Y: 1}, keys[2][0])
	assertVec(t, math.Vec3{X: 1, Z: -1}, keys[0][1])
	assertVec(t, math.Vec3{X: 1, Z: 1}, keys[2][1])

	keys = extrapolateKeys(base, 1, vel, nil, []float64{2}, 1)
	assertVec(t, math.Vec3{X: 1}, keys[0][0])
}

func TestForceVelocityBlurConstantTopology(t *testing.T) {
	moving := make([]math.Vec3, 4)
	for i := range moving {
		moving[i] = math.Vec3{X: 24}
	}
	tests := []struct {
		name     string
		force    bool
		mesh     bool
		from, to float32
		consumed bool
	}{
		{"mesh forced", true, true, -0.5, 0.5, true},
		{"mesh not forced", false, true, 0, 0, false},
		{"points forced", true, false, -0.5, 0.5, false},
		{"points not forced", false, false, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s *cache.Scene
			name := "quad"
			if tt.mesh {
				var n *cache.Node
				s, n = quadScene(t)
				n.GeomParams = []*cache.GeomParam{vecParam("velocity", moving...)}
			} else {
				s = cache.NewScene("points")
				n, err := s.Add(0, "pts", cache.KindPoints)
				require.NoError(t, err)
				n.Points = &cache.PointsData{Samples: cache.ConstantProperty("P", cache.PointsSample{
					Positions:  []math.Vec3{{}, {Y: 1}},
					IDs:        []uint64{0, 1},
					Velocities: moving[:2],
				})}
				name = "pts"
			}

			cfg := singleShapeConfig(0)
			cfg.Velocity.ForceVelocityBlur = tt.force
			cfg.Motion.MotionSamples = 2
			cfg.Motion.ShutterOpen = -0.5
			cfg.Motion.ShutterClose = 0.5
			node := buildShape(t, s, cfg, name).Node

			positions := node.Array("vlist")
			if !tt.mesh {
				positions = node.Array("points")
			}
			require.NotNil(t, positions)
			assert.InDelta(t, tt.from, positions.Vec3(0, 0).X, tol)
			assert.InDelta(t, tt.to, positions.Vec3(positions.NumKeys-1, 0).X, tol)
			if tt.mesh {
				assert.Equal(t, !tt.consumed, slices.Contains(node.Declared(), "velocity"))
			}
		})
	}
}

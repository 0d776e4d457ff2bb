package cache

import (
	"fmt"
	"os"

	"github.com/Faultbox/abcproc/pkg/math"
	"gopkg.in/yaml.v3"
)

// Scene descriptions are YAML documents listing time samplings and a tree
// of objects. Property samples without an explicit sampling are spaced at
// 24 samples per second from t=0.

type sceneDesc struct {
	DefaultSampling string                  `yaml:"default_sampling"`
	TimeSamplings   map[string]samplingDesc `yaml:"time_samplings"`
	Objects         []objectDesc            `yaml:"objects"`
}

type samplingDesc struct {
	Type  string    `yaml:"type"`
	Start float64   `yaml:"start"`
	Step  float64   `yaml:"step"`
	Times []float64 `yaml:"times"`
}

type objectDesc struct {
	Name       string       `yaml:"name"`
	Type       string       `yaml:"type"`
	Instance   string       `yaml:"instance"`
	Sampling   string       `yaml:"sampling"`
	Visible    []int8       `yaml:"visible"`
	Bounds     [][6]float32 `yaml:"bounds"`
	Xform      *xformDesc   `yaml:"xform"`
	Mesh       *meshDesc    `yaml:"mesh"`
	Points     *pointsDesc  `yaml:"points"`
	Curves     *curvesDesc  `yaml:"curves"`
	UserProps  []paramDesc  `yaml:"user_props"`
	GeomParams []paramDesc  `yaml:"geom_params"`
	Children   []objectDesc `yaml:"children"`
}

type xformDesc struct {
	Locator bool              `yaml:"locator"`
	Samples []xformSampleDesc `yaml:"samples"`
}

type xformSampleDesc struct {
	Matrix    []float64   `yaml:"matrix"`
	Translate [3]float32  `yaml:"translate"`
	Rotate    [3]float64  `yaml:"rotate"`
	Scale     *[3]float32 `yaml:"scale"`
	Inherits  *bool       `yaml:"inherits"`
}

type meshDesc struct {
	Topology string           `yaml:"topology"`
	Samples  []meshSampleDesc `yaml:"samples"`
	Normals  *paramDesc       `yaml:"normals"`
	UVs      *paramDesc       `yaml:"uvs"`
}

type meshSampleDesc struct {
	Positions   [][3]float32 `yaml:"positions"`
	FaceCounts  []int32      `yaml:"face_counts"`
	FaceIndices []int32      `yaml:"face_indices"`
	Velocities  [][3]float32 `yaml:"velocities"`
}

type pointsDesc struct {
	Samples []pointsSampleDesc `yaml:"samples"`
	Widths  *paramDesc         `yaml:"widths"`
}

type pointsSampleDesc struct {
	Positions  [][3]float32 `yaml:"positions"`
	IDs        []uint64     `yaml:"ids"`
	Velocities [][3]float32 `yaml:"velocities"`
}

type curvesDesc struct {
	Type    string            `yaml:"type"`
	Wrap    string            `yaml:"wrap"`
	Basis   string            `yaml:"basis"`
	Samples []curveSampleDesc `yaml:"samples"`
	Widths  *paramDesc        `yaml:"widths"`
	Normals *paramDesc        `yaml:"normals"`
	UVs     *paramDesc        `yaml:"uvs"`
}

type curveSampleDesc struct {
	Positions   [][3]float32 `yaml:"positions"`
	NumVertices []int32      `yaml:"num_vertices"`
	Weights     []float32    `yaml:"weights"`
	Orders      []uint8      `yaml:"orders"`
	Knots       []float32    `yaml:"knots"`
	Velocities  [][3]float32 `yaml:"velocities"`
}

type paramDesc struct {
	Name           string      `yaml:"name"`
	Scope          string      `yaml:"scope"`
	POD            string      `yaml:"pod"`
	Extent         int         `yaml:"extent"`
	Interpretation string      `yaml:"interpretation"`
	NotUV          bool        `yaml:"not_uv"`
	Array          bool        `yaml:"array"`
	Samples        []yaml.Node `yaml:"samples"`
	Indices        [][]uint32  `yaml:"indices"`
}

var podNames = map[string]POD{
	"bool":    PODBool,
	"int8":    PODInt8,
	"uint8":   PODUint8,
	"int16":   PODInt16,
	"uint16":  PODUint16,
	"int32":   PODInt32,
	"int":     PODInt32,
	"uint32":  PODUint32,
	"int64":   PODInt64,
	"uint64":  PODUint64,
	"float16": PODFloat16,
	"float32": PODFloat32,
	"float":   PODFloat32,
	"float64": PODFloat64,
	"double":  PODFloat64,
	"string":  PODString,
}

var kindByName = map[string]Kind{
	"":        KindGeneric,
	"generic": KindGeneric,
	"xform":   KindXform,
	"mesh":    KindMesh,
	"subd":    KindSubD,
	"points":  KindPoints,
	"curves":  KindCurves,
	"nupatch": KindNuPatch,
}

// LoadFile reads a YAML scene description.
func LoadFile(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data, path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return s, nil
}

// Parse builds a scene from a YAML scene description.
func Parse(data []byte, filename string) (*Scene, error) {
	var desc sceneDesc
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, err
	}

	b := &sceneBuilder{
		scene:     NewScene(filename),
		samplings: map[string]TimeSampling{},
		fallback:  UniformSampling(0, 1.0/24.0),
	}
	for name, sd := range desc.TimeSamplings {
		ts, err := sd.build()
		if err != nil {
			return nil, fmt.Errorf("time sampling %q: %w", name, err)
		}
		b.samplings[name] = ts
	}
	if desc.DefaultSampling != "" {
		ts, ok := b.samplings[desc.DefaultSampling]
		if !ok {
			return nil, fmt.Errorf("unknown default sampling %q", desc.DefaultSampling)
		}
		b.fallback = ts
	}

	for i := range desc.Objects {
		if err := b.object(0, &desc.Objects[i]); err != nil {
			return nil, err
		}
	}
	if err := b.linkInstances(); err != nil {
		return nil, err
	}
	return b.scene, nil
}

func (sd samplingDesc) build() (TimeSampling, error) {
	switch sd.Type {
	case "", "uniform":
		if sd.Step <= 0 {
			return TimeSampling{}, fmt.Errorf("uniform step must be positive")
		}
		return UniformSampling(sd.Start, sd.Step), nil
	case "cyclic":
		if sd.Step <= 0 || len(sd.Times) == 0 {
			return TimeSampling{}, fmt.Errorf("cyclic sampling needs a cycle and times")
		}
		return CyclicSampling(sd.Step, sd.Times...), nil
	case "acyclic":
		for i := 1; i < len(sd.Times); i++ {
			if sd.Times[i] <= sd.Times[i-1] {
				return TimeSampling{}, fmt.Errorf("acyclic times must increase")
			}
		}
		return AcyclicSampling(sd.Times...), nil
	default:
		return TimeSampling{}, fmt.Errorf("unknown sampling type %q", sd.Type)
	}
}

type pendingInstance struct {
	node   *Node
	master string
}

type sceneBuilder struct {
	scene     *Scene
	samplings map[string]TimeSampling
	fallback  TimeSampling
	pending   []pendingInstance
}

func (b *sceneBuilder) object(parent NodeID, od *objectDesc) error {
	kind := KindGeneric
	if od.Instance == "" {
		k, ok := kindByName[od.Type]
		if !ok {
			return fmt.Errorf("object %q: unknown type %q", od.Name, od.Type)
		}
		kind = k
	}

	n, err := b.scene.Add(parent, od.Name, kind)
	if err != nil {
		return err
	}
	if od.Instance != "" {
		b.pending = append(b.pending, pendingInstance{node: n, master: od.Instance})
		return nil
	}

	ts := b.fallback
	if od.Sampling != "" {
		var ok bool
		if ts, ok = b.samplings[od.Sampling]; !ok {
			return fmt.Errorf("%s: unknown sampling %q", n.Path, od.Sampling)
		}
	}

	if len(od.Visible) > 0 {
		n.Visibility = NewProperty("visible", ts, od.Visible...)
	}

	if err := b.schema(n, od, ts); err != nil {
		return fmt.Errorf("%s: %w", n.Path, err)
	}

	for i := range od.UserProps {
		pd := &od.UserProps[i]
		vals, err := pd.values(ts)
		if err != nil {
			return fmt.Errorf("%s: user property %q: %w", n.Path, pd.Name, err)
		}
		n.UserProps = append(n.UserProps, &UserProp{Name: pd.Name, IsArray: pd.Array, Values: vals})
	}
	for i := range od.GeomParams {
		gp, err := od.GeomParams[i].geomParam(ts)
		if err != nil {
			return fmt.Errorf("%s: %w", n.Path, err)
		}
		n.GeomParams = append(n.GeomParams, gp)
	}

	if len(od.Bounds) > 0 {
		boxes := make([]math.Box3, len(od.Bounds))
		for i, bd := range od.Bounds {
			boxes[i] = math.Box3{Min: math.Vec3{X: bd[0], Y: bd[1], Z: bd[2]}, Max: math.Vec3{X: bd[3], Y: bd[4], Z: bd[5]}}
		}
		n.SelfBounds = NewProperty("bounds", ts, boxes...)
	}

	for i := range od.Children {
		if err := b.object(n.ID, &od.Children[i]); err != nil {
			return err
		}
	}
	return nil
}

func (b *sceneBuilder) schema(n *Node, od *objectDesc, ts TimeSampling) error {
	switch n.Kind {
	case KindXform:
		if od.Xform == nil {
			n.Xform = &XformData{}
			return nil
		}
		samples := make([]XformSample, len(od.Xform.Samples))
		for i, sd := range od.Xform.Samples {
			x, err := sd.build()
			if err != nil {
				return fmt.Errorf("xform sample %d: %w", i, err)
			}
			samples[i] = x
		}
		n.Xform = &XformData{Locator: od.Xform.Locator, Samples: NewProperty("xform", ts, samples...)}

	case KindMesh, KindSubD:
		if od.Mesh == nil {
			return fmt.Errorf("missing mesh data")
		}
		md, err := od.Mesh.build(ts)
		if err != nil {
			return err
		}
		n.Mesh = md
		if n.SelfBounds == nil {
			n.SelfBounds = boundsOf(ts, len(md.Samples.Values), func(i int) []math.Vec3 { return md.Samples.Values[i].Positions })
		}

	case KindPoints:
		if od.Points == nil {
			return fmt.Errorf("missing points data")
		}
		samples := make([]PointsSample, len(od.Points.Samples))
		for i, sd := range od.Points.Samples {
			samples[i] = PointsSample{Positions: vecs(sd.Positions), IDs: sd.IDs, Velocities: vecs(sd.Velocities)}
			if len(sd.IDs) != len(sd.Positions) {
				return fmt.Errorf("points sample %d: %d ids for %d positions", i, len(sd.IDs), len(sd.Positions))
			}
		}
		pd := &PointsData{Samples: NewProperty("P", ts, samples...)}
		if od.Points.Widths != nil {
			w, err := od.Points.Widths.geomParam(ts)
			if err != nil {
				return err
			}
			pd.Widths = w
		}
		n.Points = pd
		n.SelfBounds = boundsOf(ts, len(samples), func(i int) []math.Vec3 { return samples[i].Positions })

	case KindCurves:
		if od.Curves == nil {
			return fmt.Errorf("missing curves data")
		}
		cd, err := od.Curves.build(ts)
		if err != nil {
			return err
		}
		n.Curves = cd
		n.SelfBounds = boundsOf(ts, len(cd.Samples.Values), func(i int) []math.Vec3 { return cd.Samples.Values[i].Positions })
	}
	return nil
}

func (b *sceneBuilder) linkInstances() error {
	for _, p := range b.pending {
		master, err := b.scene.Find(p.master)
		if err != nil {
			return fmt.Errorf("instance %s: %w", p.node.Path, err)
		}
		for master.IsInstance() {
			master = b.scene.nodes[master.Master]
		}
		if master.ID == p.node.ID {
			return fmt.Errorf("instance %s points at itself", p.node.Path)
		}
		p.node.Master = master.ID
		master.Instances = append(master.Instances, p.node.ID)
		p.node.InstanceNumber = len(master.Instances)
	}
	return nil
}

func (sd xformSampleDesc) build() (XformSample, error) {
	x := XformSample{Inherits: true}
	if sd.Inherits != nil {
		x.Inherits = *sd.Inherits
	}
	if len(sd.Matrix) > 0 {
		if len(sd.Matrix) != 16 {
			return x, fmt.Errorf("matrix needs 16 values, got %d", len(sd.Matrix))
		}
		copy(x.Matrix[:], sd.Matrix)
		return x, nil
	}
	scale := math.Vec3{X: 1, Y: 1, Z: 1}
	if sd.Scale != nil {
		scale = math.Vec3{X: sd.Scale[0], Y: sd.Scale[1], Z: sd.Scale[2]}
	}
	x.Matrix = math.Compose(
		math.Vec3{X: sd.Translate[0], Y: sd.Translate[1], Z: sd.Translate[2]},
		math.QuatFromEuler(sd.Rotate[0], sd.Rotate[1], sd.Rotate[2]),
		scale,
	)
	return x, nil
}

func (md *meshDesc) build(ts TimeSampling) (*MeshData, error) {
	samples := make([]MeshSample, len(md.Samples))
	for i, sd := range md.Samples {
		samples[i] = MeshSample{
			Positions:   vecs(sd.Positions),
			FaceCounts:  sd.FaceCounts,
			FaceIndices: sd.FaceIndices,
			Velocities:  vecs(sd.Velocities),
		}
		total := 0
		for _, c := range sd.FaceCounts {
			total += int(c)
		}
		if total != len(sd.FaceIndices) {
			return nil, fmt.Errorf("mesh sample %d: face counts sum to %d, %d indices", i, total, len(sd.FaceIndices))
		}
		for _, idx := range sd.FaceIndices {
			if idx < 0 || int(idx) >= len(sd.Positions) {
				return nil, fmt.Errorf("mesh sample %d: face index %d out of range", i, idx)
			}
		}
	}

	out := &MeshData{Samples: NewProperty("P", ts, samples...)}
	switch md.Topology {
	case "":
		out.Variance = topologyOf(samples)
	case "constant":
		out.Variance = ConstantTopology
	case "homogeneous":
		out.Variance = HomogeneousTopology
	case "heterogeneous":
		out.Variance = HeterogeneousTopology
	default:
		return nil, fmt.Errorf("unknown topology %q", md.Topology)
	}

	var err error
	if md.Normals != nil {
		if out.Normals, err = md.Normals.geomParam(ts); err != nil {
			return nil, err
		}
	}
	if md.UVs != nil {
		if out.UVs, err = md.UVs.geomParam(ts); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func topologyOf(samples []MeshSample) TopologyVariance {
	v := ConstantTopology
	for i := 1; i < len(samples); i++ {
		a, b := samples[0], samples[i]
		if len(a.Positions) != len(b.Positions) || !equalInts(a.FaceCounts, b.FaceCounts) || !equalInts(a.FaceIndices, b.FaceIndices) {
			return HeterogeneousTopology
		}
		if !equalVecs(a.Positions, b.Positions) {
			v = HomogeneousTopology
		}
	}
	return v
}

func (cd *curvesDesc) build(ts TimeSampling) (*CurvesData, error) {
	out := &CurvesData{}
	typ := CurveLinear
	switch cd.Type {
	case "", "linear":
	case "cubic":
		typ = CurveCubic
	case "variable":
		typ = CurveVariableOrder
	default:
		return nil, fmt.Errorf("unknown curve type %q", cd.Type)
	}
	wrap := NonPeriodic
	switch cd.Wrap {
	case "", "nonperiodic":
	case "periodic":
		wrap = Periodic
	default:
		return nil, fmt.Errorf("unknown curve wrap %q", cd.Wrap)
	}
	basis := NoBasis
	switch cd.Basis {
	case "", "none":
	case "bezier":
		basis = BezierBasis
	case "bspline":
		basis = BSplineBasis
	case "catmullrom":
		basis = CatmullRomBasis
	case "hermite":
		basis = HermiteBasis
	case "power":
		basis = PowerBasis
	default:
		return nil, fmt.Errorf("unknown curve basis %q", cd.Basis)
	}

	samples := make([]CurvesSample, len(cd.Samples))
	for i, sd := range cd.Samples {
		total := 0
		for _, c := range sd.NumVertices {
			total += int(c)
		}
		if total != len(sd.Positions) {
			return nil, fmt.Errorf("curves sample %d: vertex counts sum to %d, %d positions", i, total, len(sd.Positions))
		}
		samples[i] = CurvesSample{
			Positions:   vecs(sd.Positions),
			NumVertices: sd.NumVertices,
			Type:        typ,
			Wrap:        wrap,
			Basis:       basis,
			Weights:     sd.Weights,
			Orders:      sd.Orders,
			Knots:       sd.Knots,
			Velocities:  vecs(sd.Velocities),
		}
	}
	out.Samples = NewProperty("P", ts, samples...)

	var err error
	for _, p := range []struct {
		desc *paramDesc
		dst  **GeomParam
	}{{cd.Widths, &out.Widths}, {cd.Normals, &out.Normals}, {cd.UVs, &out.UVs}} {
		if p.desc == nil {
			continue
		}
		if *p.dst, err = p.desc.geomParam(ts); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (pd *paramDesc) geomParam(ts TimeSampling) (*GeomParam, error) {
	vals, err := pd.values(ts)
	if err != nil {
		return nil, fmt.Errorf("geometry parameter %q: %w", pd.Name, err)
	}
	scope := ParseScope(pd.Scope)
	if scope == ScopeUnknown {
		return nil, fmt.Errorf("geometry parameter %q: unknown scope %q", pd.Name, pd.Scope)
	}
	gp := &GeomParam{Name: pd.Name, Scope: scope, NotUV: pd.NotUV, Values: vals}
	if len(pd.Indices) > 0 {
		gp.Indices = NewProperty(pd.Name+".indices", ts, pd.Indices...)
		for i, idx := range pd.Indices {
			j := i
			if j >= len(vals.Values) {
				j = len(vals.Values) - 1
			}
			n := vals.Values[j].Len()
			for _, k := range idx {
				if int(k) >= n {
					return nil, fmt.Errorf("geometry parameter %q: index %d out of range in sample %d", pd.Name, k, i)
				}
			}
		}
	}
	return gp, nil
}

func (pd *paramDesc) values(ts TimeSampling) (*Property[Array], error) {
	pod, ok := podNames[pd.POD]
	if !ok {
		if pd.POD != "" {
			return nil, fmt.Errorf("unknown pod %q", pd.POD)
		}
		pod = PODFloat32
	}
	extent := pd.Extent
	if extent < 1 {
		extent = 1
	}

	arrays := make([]Array, len(pd.Samples))
	for i := range pd.Samples {
		a := Array{POD: pod, Extent: extent, Interpretation: pd.Interpretation}
		var err error
		switch {
		case pod == PODBool:
			err = pd.Samples[i].Decode(&a.Bools)
		case pod == PODString:
			err = pd.Samples[i].Decode(&a.Strings)
		case pod.IsFloat():
			err = pd.Samples[i].Decode(&a.Floats)
		default:
			err = pd.Samples[i].Decode(&a.Ints)
		}
		if err != nil {
			return nil, fmt.Errorf("sample %d: %w", i, err)
		}
		if a.Len()*extent != flatLen(a) {
			return nil, fmt.Errorf("sample %d: %d values is not a multiple of extent %d", i, flatLen(a), extent)
		}
		arrays[i] = a
	}
	return NewProperty(pd.Name, ts, arrays...), nil
}

func flatLen(a Array) int {
	return len(a.Bools) + len(a.Ints) + len(a.Floats) + len(a.Strings)
}

func boundsOf(ts TimeSampling, n int, points func(int) []math.Vec3) *Property[math.Box3] {
	boxes := make([]math.Box3, n)
	for i := range boxes {
		boxes[i] = math.BoundPoints(points(i))
	}
	return NewProperty("bounds", ts, boxes...)
}

func vecs(in [][3]float32) []math.Vec3 {
	if in == nil {
		return nil
	}
	out := make([]math.Vec3, len(in))
	for i, v := range in {
		out[i] = math.Vec3{X: v[0], Y: v[1], Z: v[2]}
	}
	return out
}

func equalInts(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalVecs(a, b []math.Vec3) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

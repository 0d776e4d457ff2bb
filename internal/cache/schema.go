package cache

import "github.com/Faultbox/abcproc/pkg/math"

// Kind is the schema of a node.
type Kind int

const (
	KindGeneric Kind = iota
	KindXform
	KindMesh
	KindSubD
	KindPoints
	KindCurves
	KindNuPatch
)

var kindNames = [...]string{"generic", "xform", "mesh", "subd", "points", "curves", "nupatch"}

// String returns the schema name used in scene descriptions.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsShape reports whether nodes of this kind carry geometry.
func (k Kind) IsShape() bool {
	return k >= KindMesh
}

// XformSample is one local transform sample.
type XformSample struct {
	Matrix   math.Mat4
	Inherits bool
}

// XformData holds a transform schema. Locators carry a transform that does
// not apply to their children.
type XformData struct {
	Samples *Property[XformSample]
	Locator bool
}

// TopologyVariance tells what changes between mesh samples.
type TopologyVariance int

const (
	ConstantTopology TopologyVariance = iota
	HomogeneousTopology
	HeterogeneousTopology
)

// MeshSample is one polygon mesh or subdivision surface sample.
type MeshSample struct {
	Positions   []math.Vec3
	FaceCounts  []int32
	FaceIndices []int32
	Velocities  []math.Vec3
}

// MeshData holds a polygon mesh or subdivision surface schema.
type MeshData struct {
	Samples  *Property[MeshSample]
	Variance TopologyVariance
	Normals  *GeomParam
	UVs      *GeomParam
}

// PointsSample is one point cloud sample.
type PointsSample struct {
	Positions  []math.Vec3
	IDs        []uint64
	Velocities []math.Vec3
}

// PointsData holds a point cloud schema.
type PointsData struct {
	Samples *Property[PointsSample]
	Widths  *GeomParam
}

// CurveType is the degree class of a curve set.
type CurveType int

const (
	CurveLinear CurveType = iota
	CurveCubic
	CurveVariableOrder
)

// CurveWrap tells whether curves are closed.
type CurveWrap int

const (
	NonPeriodic CurveWrap = iota
	Periodic
)

// CurveBasis is the cubic basis of a curve set.
type CurveBasis int

const (
	NoBasis CurveBasis = iota
	BezierBasis
	BSplineBasis
	CatmullRomBasis
	HermiteBasis
	PowerBasis
)

// CurvesSample is one curve set sample. Knots, when present, hold the
// concatenated knot vectors of every curve.
type CurvesSample struct {
	Positions   []math.Vec3
	NumVertices []int32
	Type        CurveType
	Wrap        CurveWrap
	Basis       CurveBasis
	Weights     []float32
	Orders      []uint8
	Knots       []float32
	Velocities  []math.Vec3
}

// CurvesData holds a curves schema.
type CurvesData struct {
	Samples *Property[CurvesSample]
	Widths  *GeomParam
	Normals *GeomParam
	UVs     *GeomParam
}

package visitor

import (
	"github.com/Faultbox/abcproc/pkg/math"
)

// SmoothNormals computes per point normals of a polygon mesh. Each face
// contributes the sum of the crosses of its edges taken from the face
// centroid, so larger faces weigh more. flip negates the result, for
// meshes written with their cached winding.
func SmoothNormals(points []math.Vec3, counts, indices []int32, flip bool) []math.Vec3 {
	out := make([]math.Vec3, len(points))
	o := 0
	for _, c := range counts {
		n := int(c)
		face := indices[o : o+n]
		o += n

		var centroid math.Vec3
		for _, i := range face {
			centroid = centroid.Add(points[i])
		}
		centroid = centroid.Scale(1 / float32(n))

		var fn math.Vec3
		for j := range face {
			a := points[face[j]].Sub(centroid)
			b := points[face[(j+1)%n]].Sub(centroid)
			fn = fn.Add(a.Cross(b))
		}
		for _, i := range face {
			out[i] = out[i].Add(fn)
		}
	}

	for i := range out {
		out[i] = out[i].Normalize()
		if flip {
			out[i] = out[i].Scale(-1)
		}
	}
	return out
}

package visitor

import (
	"github.com/Faultbox/abcproc/pkg/math"
	"github.com/chewxy/math32"
)

// degenerateUV is the smallest UV triangle area used for tangents.
const degenerateUV = 1e-12

// Tangents computes per point tangent and bitangent vectors from the UV
// gradient of every triangle of a face fan. uvs holds one value per face
// vertex. The result is orthonormalized against normals.
func Tangents(points []math.Vec3, counts, indices []int32, uvs []math.Vec2, normals []math.Vec3) (tangents, bitangents []math.Vec3) {
	tangents = make([]math.Vec3, len(points))
	bitangents = make([]math.Vec3, len(points))

	o := 0
	for _, c := range counts {
		n := int(c)
		for j := 1; j+1 < n; j++ {
			v0, v1, v2 := o, o+j, o+j+1
			p0, p1, p2 := points[indices[v0]], points[indices[v1]], points[indices[v2]]
			e1, e2 := p1.Sub(p0), p2.Sub(p0)
			d1, d2 := uvs[v1].Sub(uvs[v0]), uvs[v2].Sub(uvs[v0])

			det := d1.X*d2.Y - d2.X*d1.Y
			if math32.Abs(det) < degenerateUV {
				continue
			}
			r := 1 / det
			t := e1.Scale(d2.Y).Sub(e2.Scale(d1.Y)).Scale(r)
			b := e2.Scale(d1.X).Sub(e1.Scale(d2.X)).Scale(r)
			for _, v := range []int{v0, v1, v2} {
				p := indices[v]
				tangents[p] = tangents[p].Add(t)
				bitangents[p] = bitangents[p].Add(b)
			}
		}
		o += n
	}

	for i, nrm := range normals {
		t := tangents[i].Sub(nrm.Scale(nrm.Dot(tangents[i]))).Normalize()
		b := bitangents[i]
		b = b.Sub(nrm.Scale(nrm.Dot(b))).Sub(t.Scale(t.Dot(b))).Normalize()
		tangents[i] = t
		bitangents[i] = b
	}
	return tangents, bitangents
}

// tangentNames returns the output names of the tangent frame of a UV set.
func tangentNames(uvSet string) (string, string) {
	if uvSet == "uv" || uvSet == "" {
		return "tangent", "bitangent"
	}
	return uvSet + "_tangent", uvSet + "_bitangent"
}

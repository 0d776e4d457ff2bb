package visitor

import (
	"errors"
	"fmt"
)

// ErrTopology is returned for face counts and indices that do not agree.
var ErrTopology = errors.New("invalid topology")

// checkTopology validates face counts against indices and point count.
func checkTopology(counts, indices []int32, np int) error {
	total := 0
	for _, c := range counts {
		if c < 3 {
			return fmt.Errorf("face with %d vertices: %w", c, ErrTopology)
		}
		total += int(c)
	}
	if total != len(indices) {
		return fmt.Errorf("%d face vertices for %d indices: %w", total, len(indices), ErrTopology)
	}
	for _, i := range indices {
		if i < 0 || int(i) >= np {
			return fmt.Errorf("index %d of %d points: %w", i, np, ErrTopology)
		}
	}
	return nil
}

// reverseWinding returns the vertex indices with every face reversed around
// its first vertex and the output position of every source vertex.
func reverseWinding(counts, indices []int32) (out []uint32, remap []uint32) {
	out = make([]uint32, len(indices))
	remap = make([]uint32, len(indices))
	o := 0
	for _, c := range counts {
		n := int(c)
		for j := 0; j < n; j++ {
			k := o
			if j > 0 {
				k = o + n - j
			}
			out[k] = uint32(indices[o+j])
			remap[o+j] = uint32(k)
		}
		o += n
	}
	return out, remap
}

func toUint32(v []int32) []uint32 {
	out := make([]uint32, len(v))
	for i, x := range v {
		out[i] = uint32(x)
	}
	return out
}

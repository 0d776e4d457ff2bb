package cache

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniformIndices(t *testing.T) {
	ts := UniformSampling(1, 0.5)

	i, st := ts.FloorIndex(1.7, 4)
	assert.Equal(t, 1, i)
	assert.InDelta(t, 1.5, st, 1e-9)

	i, st = ts.CeilIndex(1.7, 4)
	assert.Equal(t, 2, i)
	assert.InDelta(t, 2.0, st, 1e-9)

	i, _ = ts.NearIndex(1.8, 4)
	assert.Equal(t, 2, i)

	// clamped at both ends
	i, _ = ts.FloorIndex(-5, 4)
	assert.Equal(t, 0, i)
	i, _ = ts.CeilIndex(50, 4)
	assert.Equal(t, 3, i)

	lo, hi := ts.Range(4)
	assert.InDelta(t, 1.0, lo, 1e-9)
	assert.InDelta(t, 2.5, hi, 1e-9)
}

func TestCyclicAndAcyclic(t *testing.T) {
	cyc := CyclicSampling(1, 0, 0.25)
	assert.InDelta(t, 1.25, cyc.SampleTime(3), 1e-9)

	acy := AcyclicSampling(0, 0.1, 0.7)
	i, st := acy.FloorIndex(0.5, 3)
	assert.Equal(t, 1, i)
	assert.InDelta(t, 0.1, st, 1e-9)
	i, _ = acy.NearIndex(0.5, 3)
	assert.Equal(t, 2, i)
}

func TestSceneAddAndFind(t *testing.T) {
	s := NewScene("mem")
	grp, err := s.Add(0, "grp", KindXform)
	require.NoError(t, err)
	mesh, err := s.Add(grp.ID, "mesh", KindMesh)
	require.NoError(t, err)

	assert.Equal(t, "/grp/mesh", mesh.Path)
	found, err := s.Find("/grp/mesh")
	require.NoError(t, err)
	assert.Equal(t, mesh.ID, found.ID)

	_, err = s.Find("/nope")
	assert.True(t, errors.Is(err, ErrUnknownNode))

	_, err = s.Add(grp.ID, "mesh", KindMesh)
	assert.Error(t, err)
	_, err = s.Add(grp.ID, "a/b", KindMesh)
	assert.Error(t, err)
}

func TestInstanceNumbering(t *testing.T) {
	s := NewScene("mem")
	grp, _ := s.Add(0, "grp", KindXform)
	master, _ := s.Add(grp.ID, "shape", KindMesh)

	a, err := s.AddInstance(grp.ID, "a", master.ID)
	require.NoError(t, err)
	b, err := s.AddInstance(0, "b", a.ID)
	require.NoError(t, err)

	assert.Equal(t, master.ID, b.Master, "instances resolve to the ultimate master")
	assert.Equal(t, 1, a.InstanceNumber)
	assert.Equal(t, 2, b.InstanceNumber)
	assert.Equal(t, 0, master.InstanceNumber)
	assert.Same(t, master, s.Master(b))
	assert.Same(t, grp, s.Master(grp))
}

func TestPartialPath(t *testing.T) {
	s := NewScene("mem")
	grp, _ := s.Add(0, "grp", KindXform)
	plain, _ := s.Add(grp.ID, "plain", KindMesh)
	master, _ := s.Add(grp.ID, "shape", KindMesh)
	_, _ = s.AddInstance(grp.ID, "copy", master.ID)

	assert.Equal(t, "", s.PartialPath(s.Root()))
	assert.Equal(t, "plain", s.PartialPath(plain))
	assert.Equal(t, "grp/shape", s.PartialPath(master))
	assert.Equal(t, "p_grp|p_shape", s.FormatPartialPath(master, "p_", "|"))
	assert.Equal(t, "plain", s.FormatPartialPath(plain, "", "|"))
}

func TestFilterKeepsSubtree(t *testing.T) {
	s := NewScene("mem")
	a, _ := s.Add(0, "a", KindXform)
	b, _ := s.Add(a.ID, "b", KindXform)
	_, _ = s.Add(a.ID, "c", KindMesh)
	leaf, _ := s.Add(b.ID, "leaf", KindMesh)

	f, err := s.Filter("/a/b")
	require.NoError(t, err)
	assert.Equal(t, []NodeID{a.ID}, f.Root().Children)
	assert.Equal(t, []NodeID{b.ID}, f.Node(a.ID).Children)
	assert.Equal(t, []NodeID{leaf.ID}, f.Node(b.ID).Children)

	// the source scene is untouched
	assert.Len(t, s.Node(a.ID).Children, 2)

	same, err := s.Filter("")
	require.NoError(t, err)
	assert.Same(t, s, same)

	_, err = s.Filter("/missing")
	assert.True(t, errors.Is(err, ErrUnknownNode))
}

func TestLoadFile(t *testing.T) {
	s, err := LoadFile(filepath.Join("testdata", "instances.yaml"))
	require.NoError(t, err)

	root, err := s.Find("/root")
	require.NoError(t, err)
	require.NotNil(t, root.Xform)
	m := root.Xform.Samples.At(0).Matrix
	assert.InDelta(t, 1.0, m[12], 1e-6)
	assert.True(t, root.Xform.Samples.At(0).Inherits)

	box, err := s.Find("/root/box")
	require.NoError(t, err)
	require.NotNil(t, box.Mesh)
	assert.Equal(t, HomogeneousTopology, box.Mesh.Variance)
	assert.Equal(t, 2, box.Mesh.Samples.NumSamples())
	assert.True(t, box.Mesh.UVs.IsIndexed())
	assert.Equal(t, ScopeFaceVarying, box.Mesh.UVs.Scope)
	assert.True(t, s.Visible(box, 0))
	assert.False(t, s.Visible(box, 0.04))

	require.NotNil(t, box.UserProp("id"))
	assert.Equal(t, []int64{7}, box.UserProp("id").Values.At(0).Ints)
	cd := box.GeomParam("Cd")
	require.NotNil(t, cd)
	assert.Equal(t, 1, cd.Values.At(0).Len())
	assert.Equal(t, "rgb", cd.Values.At(0).Interpretation)

	bounds := box.SelfBounds.At(1)
	assert.InDelta(t, 1.0, bounds.Min.Z, 1e-6)

	copy2, err := s.Find("/root/copy2")
	require.NoError(t, err)
	assert.Equal(t, box.ID, copy2.Master)
	assert.Equal(t, 2, copy2.InstanceNumber)
	assert.Equal(t, "root/copy2", s.PartialPath(copy2))

	pts, err := s.Find("/particles")
	require.NoError(t, err)
	require.NotNil(t, pts.Points)
	assert.Equal(t, Acyclic, pts.Points.Samples.Sampling.Type)
	assert.Len(t, pts.Points.Samples.At(1).IDs, 3)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"unknown type":   "objects: [{name: a, type: teapot}]",
		"bad indices":    "objects: [{name: a, type: mesh, mesh: {samples: [{positions: [[0,0,0]], face_counts: [3], face_indices: [0,0,1]}]}}]",
		"missing master": "objects: [{name: a, instance: /b}]",
		"bad sampling":   "time_samplings: {x: {type: uniform, step: 0}}",
		"bad extent":     "objects: [{name: a, type: generic, user_props: [{name: p, extent: 3, samples: [[1, 2]]}]}]",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), "test.yaml")
			assert.Error(t, err)
		})
	}
}

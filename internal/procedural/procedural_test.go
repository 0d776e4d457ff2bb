package procedural

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/Faultbox/abcproc/internal/assets"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/visitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

var scenePath = filepath.Join("..", "cache", "testdata", "instances.yaml")

func newEnv() Env {
	return Env{
		Registry: render.NewRegistry(render.NewMemorySink()),
		Scenes:   assets.NewManager(),
	}
}

func procNode(t *testing.T, env Env, name string) *render.Node {
	t.Helper()
	n, err := env.Registry.CreateNode(render.TypeProcedural, name, nil)
	require.NoError(t, err)
	require.NoError(t, n.SetString("filename", scenePath))
	return n
}

func sinkOf(env Env) *render.MemorySink {
	return env.Registry.Sink().(*render.MemorySink)
}

func enabled(nodes []*render.Node) []*render.Node {
	var out []*render.Node
	for _, n := range nodes {
		if !n.Disabled() {
			out = append(out, n)
		}
	}
	return out
}

// expandChildren expands the parent procedural and creates one procedural
// per generated node.
func expandChildren(t *testing.T, env Env, parent *render.Node) []*Procedural {
	t.Helper()
	p, err := New(parent, env)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	require.Equal(t, ModeMulti, p.Mode())

	children := make([]*Procedural, p.NumNodes())
	for i := range children {
		node, err := p.GetNode(i)
		require.NoError(t, err)
		require.NotNil(t, node)
		children[i], err = New(node, env)
		require.NoError(t, err)
		t.Cleanup(children[i].Close)
		assert.Equal(t, ModeSingle, children[i].Mode(), node.Name())
	}
	return children
}

func TestReadConfig(t *testing.T) {
	env := newEnv()
	n := procNode(t, env, "abc")
	require.NoError(t, n.SetString("data", "time:\n  fps: 30\n  speed: 2\nshape:\n  nurbs_sample_rate: 8\n"))
	require.NoError(t, n.SetFloat("frame", 12))
	require.NoError(t, n.SetFloat("start_frame", 1))
	require.NoError(t, n.SetFloat("end_frame", 48))
	require.NoError(t, n.SetString("cycle", "loop"))
	require.NoError(t, n.SetInt("motion_samples", 3))
	require.NoError(t, n.SetBool("ignore_nurbs", true))
	require.NoError(t, n.SetArray("ignore_attributes", render.StringArray("wear", "tmp*")))
	require.NoError(t, n.SetArray("samples", render.FloatArray(render.TypeFloat, 1, []float32{-0.25, 0.25})))
	require.NoError(t, n.SetString("subdiv_type", "catclark"))
	require.NoError(t, n.SetInt("subdiv_iterations", 2))

	cfg, err := ReadConfig(n)
	require.NoError(t, err)
	assert.Equal(t, scenePath, cfg.Filename)
	assert.Equal(t, 30.0, cfg.Time.FPS)
	assert.Equal(t, 2.0, cfg.Time.Speed)
	assert.Equal(t, 12.0, cfg.Time.Frame)
	assert.Equal(t, config.CycleLoop, cfg.Time.Cycle)
	require.NotNil(t, cfg.Time.StartFrame)
	assert.Equal(t, 1.0, *cfg.Time.StartFrame)
	assert.Equal(t, 48.0, *cfg.Time.EndFrame)
	assert.Equal(t, 3, cfg.Motion.MotionSamples)
	assert.Equal(t, []float64{-0.25, 0.25}, cfg.Motion.Samples)
	assert.True(t, cfg.Filters.IgnoreNurbs)
	assert.Equal(t, []string{"wear", "tmp*"}, cfg.Attribs.Ignore)
	assert.Equal(t, 8, cfg.Shape.NurbsSampleRate)

	o := ReadOverrides(n)
	assert.Equal(t, "catclark", o.SubdivType)
	assert.Equal(t, 2, o.SubdivIterations)
	assert.True(t, o.Smoothing)
}

func TestReadConfigInvalid(t *testing.T) {
	env := newEnv()
	n := procNode(t, env, "abc")
	require.NoError(t, n.SetString("cycle", "sideways"))
	require.NoError(t, n.SetFloat("fps", 0))

	_, err := ReadConfig(n)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	n2 := procNode(t, env, "abc2")
	require.NoError(t, n2.SetString("data", "time: ["))
	_, err = ReadConfig(n2)
	assert.Error(t, err)
}

func TestNormalizeFilePath(t *testing.T) {
	assert.Equal(t, "a/b/c.yaml", normalizeFilePath(`a\b\c.yaml`))
	if runtime.GOOS != "windows" {
		assert.Equal(t, "/cache/c.yaml", normalizeFilePath(`Z:\cache\c.yaml`))
	}
}

func TestNewErrors(t *testing.T) {
	env := newEnv()

	n, err := env.Registry.CreateNode(render.TypeProcedural, "empty", nil)
	require.NoError(t, err)
	_, err = New(n, env)
	assert.True(t, errors.Is(err, ErrNoFilename))

	bad := procNode(t, env, "bad")
	require.NoError(t, bad.SetString("objectpath", "/nowhere"))
	_, err = New(bad, env)
	assert.Error(t, err)
	assert.Equal(t, 0, env.Scenes.Len(), "scene released on failure")
}

func TestSingleMode(t *testing.T) {
	env := newEnv()
	n := procNode(t, env, "parts")
	require.NoError(t, n.SetString("objectpath", "/particles"))
	require.NoError(t, n.SetBool("ignore_transforms", true))
	require.NoError(t, n.SetBool("ignore_visibility", true))
	require.NoError(t, n.SetBool("ignore_instances", true))

	p, err := New(n, env)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, ModeSingle, p.Mode())
	assert.Equal(t, 1, p.NumNodes())
	assert.NotEmpty(t, p.RunID())

	node, err := p.GetNode(0)
	require.NoError(t, err)
	require.NotNil(t, node)
	assert.Equal(t, render.TypePoints, node.Type())
	assert.Equal(t, "parts_particles", node.Name())
	assert.Same(t, n, node.Parent())

	again, err := p.GetNode(0)
	require.NoError(t, err)
	assert.Same(t, node, again)

	_, err = p.GetNode(1)
	assert.True(t, errors.Is(err, ErrIndex))
}

func TestMultiMode(t *testing.T) {
	env := newEnv()
	parent := procNode(t, env, "abc")

	p, err := New(parent, env)
	require.NoError(t, err)
	defer p.Close()
	assert.Equal(t, ModeMulti, p.Mode())
	require.Equal(t, 4, p.NumNodes())

	var names []string
	for i := range p.NumNodes() {
		node, err := p.GetNode(i)
		require.NoError(t, err)
		require.NotNil(t, node)
		assert.Equal(t, render.TypeProcedural, node.Type())
		names = append(names, node.Name())

		run, ok := node.Param("abcproc_run")
		require.True(t, ok)
		assert.Equal(t, p.RunID(), run.String)
	}
	assert.Equal(t, []string{"root|box", "root|copy", "root|copy2", "particles"}, names)

	_, err = p.GetNode(4)
	assert.True(t, errors.Is(err, ErrIndex))

	hits, misses := env.Scenes.Stats()
	assert.Equal(t, 0, hits)
	assert.Equal(t, 1, misses)
}

func TestSharedShapesHaveOneMaster(t *testing.T) {
	for range 10 {
		env := newEnv()
		children := expandChildren(t, env, procNode(t, env, "abc"))

		var g errgroup.Group
		for _, c := range children {
			g.Go(func() error {
				_, err := c.GetNode(0)
				return err
			})
		}
		require.NoError(t, g.Wait())

		sink := sinkOf(env)
		meshes := enabled(sink.NodesOfType(render.TypePolymesh))
		require.Len(t, meshes, 1, "exactly one full geometry node")

		instances := sink.NodesOfType(render.TypeGInstance)
		require.Len(t, instances, 2)
		for _, gi := range instances {
			target, ok := gi.Param("node")
			require.True(t, ok)
			assert.Same(t, meshes[0], target.Node)
			inherit, _ := gi.Param("inherit_xform")
			assert.False(t, inherit.Bool)
			assert.NotNil(t, gi.Array("matrix"))
		}

		assert.Len(t, enabled(sink.NodesOfType(render.TypePoints)), 1)
		assert.Equal(t, 2, env.Registry.NumMasters())

		disabled := 0
		for _, n := range sink.NodesOfType(render.TypeProcedural) {
			if n.Disabled() {
				disabled++
			}
		}
		assert.Equal(t, 2, disabled, "instanced procedurals are disabled")
	}
}

func singleBox(t *testing.T, env Env, name string) *render.Node {
	t.Helper()
	n := procNode(t, env, name)
	require.NoError(t, n.SetString("objectpath", "/root/box"))
	require.NoError(t, n.SetBool("ignore_transforms", true))
	require.NoError(t, n.SetBool("ignore_visibility", true))
	require.NoError(t, n.SetBool("ignore_instances", true))
	return n
}

func TestNodeOverridesSplitMasters(t *testing.T) {
	env := newEnv()
	smooth := singleBox(t, env, "smooth")
	require.NoError(t, smooth.SetString("subdiv_type", "none"))
	subd := singleBox(t, env, "subd")
	require.NoError(t, subd.SetString("subdiv_type", "catclark"))
	same := singleBox(t, env, "same")
	require.NoError(t, same.SetString("subdiv_type", "catclark"))

	var built []*render.Node
	for _, n := range []*render.Node{smooth, subd, same} {
		p, err := New(n, env)
		require.NoError(t, err)
		defer p.Close()
		require.Equal(t, ModeSingle, p.Mode())
		node, err := p.GetNode(0)
		require.NoError(t, err)
		require.NotNil(t, node)
		built = append(built, node)
	}

	assert.Equal(t, render.TypePolymesh, built[0].Type())
	assert.Equal(t, "smooth_box", built[0].Name())
	require.Equal(t, render.TypePolymesh, built[1].Type())
	assert.Equal(t, "subd_box", built[1].Name())
	typ, ok := built[1].Param("subdiv_type")
	require.True(t, ok)
	assert.Equal(t, "catclark", typ.String)

	require.Equal(t, render.TypeGInstance, built[2].Type())
	target, _ := built[2].Param("node")
	assert.Same(t, built[1], target.Node)
	assert.Equal(t, 2, env.Registry.NumMasters())
}

func TestInstanceKeepsProceduralName(t *testing.T) {
	env := newEnv()
	children := expandChildren(t, env, procNode(t, env, "abc"))

	for _, c := range children {
		_, err := c.GetNode(0)
		require.NoError(t, err)
	}

	sink := sinkOf(env)
	master := sink.LookupNode("root|box_box")
	require.NotNil(t, master)
	assert.False(t, master.Disabled())

	gi := sink.LookupNode("root|copy")
	require.NotNil(t, gi)
	assert.Equal(t, render.TypeGInstance, gi.Type())

	proc := sink.LookupNode("root|copy_disabled")
	require.NotNil(t, proc)
	assert.True(t, proc.Disabled())
}

func TestReferenceFrame(t *testing.T) {
	env := newEnv()
	parent := procNode(t, env, "abc")
	require.NoError(t, parent.SetBool("output_reference", true))
	require.NoError(t, parent.SetString("reference_source", "frame"))

	children := expandChildren(t, env, parent)
	for _, c := range children {
		_, declared := c.node.Declaration(visitor.RefMatrixName)
		assert.True(t, declared, c.node.Name())
	}

	node, err := children[0].GetNode(0)
	require.NoError(t, err)
	require.NotNil(t, node)
	pref := node.Array(visitor.RefPositionName)
	require.NotNil(t, pref)
	got := pref.Vec3(0, 0)
	assert.InDelta(t, 1, got.X, 1e-6)
	assert.InDelta(t, 0, got.Y, 1e-6)
}

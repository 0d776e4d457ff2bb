// Package procedural expands one host procedural node. It reads the node
// configuration, opens the cached scene and either generates one deferred
// procedural per shape (multi mode) or builds the single shape the node
// points at (single mode), sharing identical shapes through instance
// masters.
package procedural

import (
	"errors"
	"fmt"
	"path"
	"sync"

	"github.com/Faultbox/abcproc/internal/assets"
	"github.com/Faultbox/abcproc/internal/cache"
	"github.com/Faultbox/abcproc/internal/config"
	"github.com/Faultbox/abcproc/internal/logger"
	"github.com/Faultbox/abcproc/internal/render"
	"github.com/Faultbox/abcproc/internal/scene"
	"github.com/Faultbox/abcproc/internal/visitor"
	"github.com/Faultbox/abcproc/pkg/math"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNoFilename is returned when a node does not name a scene.
	ErrNoFilename = errors.New("no scene filename")
	// ErrIndex is returned by GetNode for indices outside [0, NumNodes).
	ErrIndex = errors.New("node index out of range")
)

// Mode is the expansion strategy of a procedural.
type Mode int

const (
	// ModeMulti generates one procedural per shape.
	ModeMulti Mode = iota
	// ModeSingle builds one shape in object space.
	ModeSingle
)

func (m Mode) String() string {
	if m == ModeSingle {
		return "single"
	}
	return "multi"
}

// Env is the state shared by every procedural of a render.
type Env struct {
	Registry *render.Registry
	Scenes   *assets.Manager
}

// Procedural is one expansion of a host procedural node.
type Procedural struct {
	node      *render.Node
	env       Env
	cfg       *config.Config
	overrides config.NodeOverrides
	runID     string
	log       *zap.Logger

	scene    *cache.Scene
	refScene *cache.Scene
	loaded   []string

	times     visitor.Times
	mode      Mode
	numShapes int

	once  sync.Once
	nodes []*render.Node
}

// New reads the configuration of node, opens its scene and counts the
// shapes to expand. Close must be called once the procedural is done.
func New(node *render.Node, env Env) (*Procedural, error) {
	cfg, err := ReadConfig(node)
	if err != nil {
		return nil, err
	}
	if cfg.Filename == "" {
		return nil, fmt.Errorf("%s: %w", node.Name(), ErrNoFilename)
	}

	p := &Procedural{
		node:      node,
		env:       env,
		cfg:       cfg,
		overrides: ReadOverrides(node),
		runID:     uuid.NewString(),
	}
	p.log = logger.Log.With(zap.String("proc", node.Name()), zap.String("run", p.runID))

	if err := p.open(); err != nil {
		p.Close()
		return nil, err
	}

	rng := cfg.FrameRange()
	if !rng.Valid() {
		if cfg.Verbose {
			p.log.Info("frame range taken from the cache")
		}
		tr := visitor.NewTimeRange()
		scene.Visit(p.scene, tr)
		if start, end, ok := tr.Range(); ok {
			rng = config.FrameRange{Start: start * cfg.Time.FPS, End: end * cfg.Time.FPS}
		}
	}
	p.times = visitor.NewTimes(cfg, rng)
	if cfg.Verbose {
		p.log.Info("render time",
			zap.Float64("frame", cfg.Time.Frame),
			zap.Float64("time", p.times.Render),
			zap.Float64s("motion", p.times.Deform))
	}

	count := visitor.NewCountShapes(p.times.Render, cfg.Filters)
	scene.Visit(p.scene, count)
	p.numShapes = count.NumShapes

	f := cfg.Filters
	if p.numShapes == 1 && f.IgnoreTransforms && f.IgnoreVisibility && f.IgnoreInstances {
		p.mode = ModeSingle
	}
	p.log.Debug("procedural ready",
		zap.Int("shapes", p.numShapes),
		zap.Stringer("mode", p.mode))
	return p, nil
}

// open loads the render and reference scenes.
func (p *Procedural) open() error {
	s, err := p.env.Scenes.Load(p.cfg.Filename)
	if err != nil {
		return err
	}
	p.loaded = append(p.loaded, p.cfg.Filename)

	p.scene, err = s.Filter(p.cfg.ObjectPath)
	if err != nil {
		return fmt.Errorf("%s: filtering %s: %w", p.node.Name(), p.cfg.Filename, err)
	}

	if p.cfg.Ref.Filename == "" {
		return nil
	}
	rs, err := p.env.Scenes.Load(p.cfg.Ref.Filename)
	if err != nil {
		p.log.Warn("cannot open reference scene", zap.String("file", p.cfg.Ref.Filename), zap.Error(err))
		return nil
	}
	p.loaded = append(p.loaded, p.cfg.Ref.Filename)
	p.refScene = rs
	return nil
}

// Close releases the scenes held by the procedural.
func (p *Procedural) Close() {
	for _, f := range p.loaded {
		p.env.Scenes.Release(f)
	}
	p.loaded = nil
}

// Config returns the resolved configuration.
func (p *Procedural) Config() *config.Config { return p.cfg }

// Mode returns the expansion strategy.
func (p *Procedural) Mode() Mode { return p.mode }

// RunID returns the identifier tagging the nodes this procedural creates.
func (p *Procedural) RunID() string { return p.runID }

// NumNodes returns the number of nodes GetNode may return.
func (p *Procedural) NumNodes() int {
	if p.mode == ModeSingle {
		return 1
	}
	return p.numShapes
}

// GetNode returns the i-th expanded node. The first call expands the
// whole procedural. A nil node means the shape could not be built.
func (p *Procedural) GetNode(i int) (*render.Node, error) {
	if i < 0 || i >= p.NumNodes() {
		return nil, fmt.Errorf("%s: %d of %d: %w", p.node.Name(), i, p.NumNodes(), ErrIndex)
	}
	p.once.Do(func() {
		if p.mode == ModeSingle {
			p.expandSingle()
		} else {
			p.expandMulti()
		}
	})
	if i >= len(p.nodes) {
		return nil, nil
	}
	return p.nodes[i], nil
}

func (p *Procedural) expandMulti() {
	gen := visitor.NewMakeProcedurals(p.cfg, p.times, p.env.Registry, p.node, p.runID)
	scene.Visit(p.scene, gen)

	if p.cfg.Ref.OutputReference && p.cfg.Ref.Source != config.ReferenceAttributes {
		p.annotateReference(gen.Nodes)
	}

	for _, g := range gen.Nodes {
		p.nodes = append(p.nodes, g.Node)
	}
	if len(p.nodes) != p.numShapes {
		p.log.Warn("fewer procedurals than shapes",
			zap.Int("shapes", p.numShapes),
			zap.Int("procedurals", len(p.nodes)))
	}
	if p.cfg.Verbose {
		p.log.Info("generated procedurals", zap.Int("count", len(p.nodes)))
	}
}

// annotateReference sets the rest pose world matrix of every generated
// procedural.
func (p *Procedural) annotateReference(nodes []visitor.Generated) {
	ref := p.referenceScene()
	if ref == nil {
		p.log.Warn("no reference scene to annotate procedurals")
		return
	}
	if filtered, err := ref.Filter(p.cfg.ObjectPath); err == nil {
		ref = filtered
	}
	t := visitor.RefTime(p.cfg, ref)
	mats := visitor.NewCollectWorldMatrices(p.cfg.Filters, []float64{t})
	scene.Visit(ref, mats)

	n := visitor.AnnotateReference(nodes, mats.Matrices)
	p.log.Debug("reference matrices", zap.Int("annotated", n), zap.Int("procedurals", len(nodes)))
}

// referenceScene returns the scene rest poses are read from.
func (p *Procedural) referenceScene() *cache.Scene {
	if p.refScene != nil {
		return p.refScene
	}
	if p.cfg.Ref.Source == config.ReferenceFrame || p.cfg.Ref.Filename == "" {
		return p.scene
	}
	return nil
}

// reference returns where single mode reads rest poses from.
func (p *Procedural) reference() *visitor.Reference {
	if !p.cfg.Ref.OutputReference {
		return nil
	}
	ref := &visitor.Reference{Scene: p.referenceScene()}
	if ref.Scene != nil {
		ref.Time = visitor.RefTime(p.cfg, ref.Scene)
	}
	if v, ok := p.node.Param(visitor.RefMatrixName); ok && v.Type == render.TypeMatrix && len(v.Floats) == 16 {
		var m math.Mat4
		for i, f := range v.Floats {
			m[i] = float64(f)
		}
		ref.Matrix = &m
	}
	return ref
}

// shapeName is the base name of the node built in single mode.
func (p *Procedural) shapeName() string {
	base := path.Base(p.cfg.ObjectPath)
	if base == "." || base == "/" {
		return p.node.Name() + "_shape"
	}
	return p.node.Name() + "_" + base
}

// expandSingle builds the shape unless another procedural already built
// the same geometry, in which case the node becomes an instance of that
// master. Building happens outside the registry lock, so the master is
// checked again before registering.
func (p *Procedural) expandSingle() {
	key := p.cfg.ShapeKey(p.cfg.ObjectPath, p.overrides)
	reg := p.env.Registry

	var inst *render.Node
	err := reg.Do(func(tx render.Tx) error {
		master := tx.Master(key)
		if master == nil {
			return nil
		}
		var err error
		inst, err = p.instance(tx, master)
		return err
	})
	if err != nil {
		p.log.Warn("cannot instance master", zap.Error(err))
		return
	}
	if inst != nil {
		p.nodes = []*render.Node{inst}
		return
	}

	shape := visitor.NewMakeShape(p.cfg, p.times, visitor.ShapeEnv{
		Registry:  reg,
		Parent:    p.node,
		Name:      p.shapeName(),
		Overrides: p.overrides,
		Reference: p.reference(),
	})
	scene.Visit(p.scene, shape)
	if shape.Node == nil {
		p.log.Warn("no shape built", zap.String("objectpath", p.cfg.ObjectPath))
		return
	}

	var out *render.Node
	err = reg.Do(func(tx render.Tx) error {
		if master := tx.Master(key); master != nil {
			p.log.Debug("master built concurrently", zap.String("master", master.Name()))
			if err := shape.Node.SetBool("disable", true); err != nil {
				return err
			}
			var err error
			out, err = p.instance(tx, master)
			return err
		}
		tx.SetMaster(key, shape.Node)
		out = shape.Node
		return nil
	})
	if err != nil {
		p.log.Warn("cannot register master", zap.Error(err))
		return
	}
	if p.cfg.Verbose {
		p.log.Info("expanded shape", zap.String("node", out.Name()), zap.String("path", shape.Path))
	}
	p.nodes = []*render.Node{out}
}

// instance disables the procedural node and puts an instance of master
// under its name. Called with the registry lock held.
func (p *Procedural) instance(tx render.Tx, master *render.Node) (*render.Node, error) {
	name := p.node.Name()
	if err := tx.Rename(p.node, name+"_disabled"); err != nil {
		return nil, err
	}
	if err := p.node.SetBool("disable", true); err != nil {
		return nil, err
	}

	gi, err := tx.CreateNode(render.TypeGInstance, name, p.node.Parent())
	if err != nil {
		return nil, err
	}
	if err := gi.SetNode("node", master); err != nil {
		return nil, err
	}
	if err := gi.SetBool("inherit_xform", false); err != nil {
		return nil, err
	}
	if _, err := gi.CopyParam(p.node, "matrix"); err != nil {
		return nil, err
	}
	p.log.Debug("instanced master", zap.String("instance", gi.Name()), zap.String("master", master.Name()))
	return gi, nil
}

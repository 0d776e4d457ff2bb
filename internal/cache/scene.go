// Package cache models the time sampled scene hierarchy read by the
// procedural: an arena of nodes addressed by NodeID, typed time sampled
// properties and the geometry schemas of each node kind.
package cache

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/abcproc/pkg/math"
)

// ErrUnknownNode is returned when a path does not resolve to a node.
var ErrUnknownNode = errors.New("unknown node")

// NodeID indexes a node in its scene arena.
type NodeID int

// NoNode is the NodeID of a missing parent or master.
const NoNode NodeID = -1

// Node is one object of the hierarchy. Structure is fixed once the scene
// is built; nodes never own their master.
type Node struct {
	ID       NodeID
	Name     string
	Path     string
	Kind     Kind
	Parent   NodeID
	Children []NodeID

	// Master is set on instance proxies. InstanceNumber is 1-based on
	// proxies and 0 everywhere else.
	Master         NodeID
	Instances      []NodeID
	InstanceNumber int

	Visibility *Property[int8]
	UserProps  []*UserProp
	GeomParams []*GeomParam
	SelfBounds *Property[math.Box3]

	Xform  *XformData
	Mesh   *MeshData
	Points *PointsData
	Curves *CurvesData
}

// IsInstance reports whether the node is a proxy of another node.
func (n *Node) IsInstance() bool {
	return n.Master != NoNode
}

// HasInstances reports whether proxies point at this node.
func (n *Node) HasInstances() bool {
	return len(n.Instances) > 0
}

// IsLocator reports whether the node is a locator transform.
func (n *Node) IsLocator() bool {
	return n.Xform != nil && n.Xform.Locator
}

// GeomParam looks up a geometry parameter by name.
func (n *Node) GeomParam(name string) *GeomParam {
	for _, g := range n.GeomParams {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// UserProp looks up a user property by name.
func (n *Node) UserProp(name string) *UserProp {
	for _, p := range n.UserProps {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Scene is an arena of nodes rooted at node 0.
type Scene struct {
	Filename string

	nodes  []*Node
	byPath map[string]NodeID
}

// NewScene returns a scene holding only its root.
func NewScene(filename string) *Scene {
	s := &Scene{Filename: filename, byPath: map[string]NodeID{}}
	root := &Node{ID: 0, Path: "/", Kind: KindGeneric, Parent: NoNode, Master: NoNode}
	s.nodes = append(s.nodes, root)
	s.byPath[root.Path] = root.ID
	return s
}

// Root returns the root node.
func (s *Scene) Root() *Node {
	return s.nodes[0]
}

// Node returns the node with the given id.
func (s *Scene) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil
	}
	return s.nodes[id]
}

// Len returns the number of nodes including the root.
func (s *Scene) Len() int {
	return len(s.nodes)
}

// Add appends a child of parent.
func (s *Scene) Add(parent NodeID, name string, kind Kind) (*Node, error) {
	p := s.Node(parent)
	if p == nil {
		return nil, fmt.Errorf("adding %q: parent %d: %w", name, parent, ErrUnknownNode)
	}
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid node name %q", name)
	}
	path := p.Path + "/" + name
	if p.ID == 0 {
		path = "/" + name
	}
	if _, dup := s.byPath[path]; dup {
		return nil, fmt.Errorf("duplicate node %s", path)
	}

	n := &Node{
		ID:     NodeID(len(s.nodes)),
		Name:   name,
		Path:   path,
		Kind:   kind,
		Parent: p.ID,
		Master: NoNode,
	}
	s.nodes = append(s.nodes, n)
	s.byPath[path] = n.ID
	p.Children = append(p.Children, n.ID)
	return n, nil
}

// AddInstance appends a proxy of master under parent and numbers it.
func (s *Scene) AddInstance(parent NodeID, name string, master NodeID) (*Node, error) {
	m := s.Node(master)
	if m == nil {
		return nil, fmt.Errorf("instancing %q: master %d: %w", name, master, ErrUnknownNode)
	}
	for m.IsInstance() {
		m = s.nodes[m.Master]
	}
	n, err := s.Add(parent, name, KindGeneric)
	if err != nil {
		return nil, err
	}
	n.Master = m.ID
	m.Instances = append(m.Instances, n.ID)
	n.InstanceNumber = len(m.Instances)
	return n, nil
}

// Find resolves a full path. The empty path is the root.
func (s *Scene) Find(path string) (*Node, error) {
	if path == "" {
		return s.Root(), nil
	}
	id, ok := s.byPath[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnknownNode)
	}
	return s.nodes[id], nil
}

// Master follows an instance proxy to its master. Other nodes resolve to
// themselves.
func (s *Scene) Master(n *Node) *Node {
	if n.IsInstance() {
		return s.nodes[n.Master]
	}
	return n
}

// PartialPath returns the node name, qualified by the parent partial path
// when the node is instanced or is an instance.
func (s *Scene) PartialPath(n *Node) string {
	if n.ID == 0 {
		return ""
	}
	pp := n.Name
	if n.IsInstance() || n.HasInstances() {
		if parent := s.Node(n.Parent); parent != nil {
			if ppp := s.PartialPath(parent); ppp != "" {
				pp = ppp + "/" + pp
			}
		}
	}
	return pp
}

// FormatPartialPath prefixes every element of the partial path and joins
// them with sep.
func (s *Scene) FormatPartialPath(n *Node, prefix string, sep string) string {
	elems := strings.Split(s.PartialPath(n), "/")
	for i, e := range elems {
		elems[i] = prefix + e
	}
	return strings.Join(elems, sep)
}

// Visible evaluates the visibility property at t. Deferred (-1) and missing
// visibility count as visible.
func (s *Scene) Visible(n *Node, t float64) bool {
	if n.Visibility.NumSamples() == 0 {
		return true
	}
	i, _ := n.Visibility.Sampling.NearIndex(t, n.Visibility.NumSamples())
	return n.Visibility.At(i) != 0
}

// Filter returns a view of the scene whose traversal from the root only
// reaches path and its descendants. Node data is shared, and nodes outside
// the view stay addressable so instance masters still resolve.
func (s *Scene) Filter(path string) (*Scene, error) {
	if path == "" || path == "/" {
		return s, nil
	}
	target, err := s.Find(path)
	if err != nil {
		return nil, err
	}

	out := &Scene{Filename: s.Filename, byPath: s.byPath, nodes: make([]*Node, len(s.nodes))}
	copy(out.nodes, s.nodes)

	child := target.ID
	for id := target.Parent; id != NoNode; id = s.nodes[id].Parent {
		n := *s.nodes[id]
		n.Children = []NodeID{child}
		out.nodes[id] = &n
		child = id
	}
	return out, nil
}

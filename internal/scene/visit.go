// Package scene walks a cache hierarchy depth first and dispatches every
// node to a Visitor.
package scene

import (
	"strings"

	"github.com/Faultbox/abcproc/internal/cache"
)

// VisitReturn tells the walker how to proceed after entering a node.
type VisitReturn int

const (
	// Continue visits the children of the node.
	Continue VisitReturn = iota
	// Prune skips the subtree. Leave is not called for the node.
	Prune
	// Stop ends the traversal. No further Enter or Leave is called.
	Stop
)

// Visitor receives the nodes of a traversal. Under an instance proxy the
// walker enters the master subtree and passes the proxy as inst to every
// node of that subtree. inst is nil elsewhere.
type Visitor interface {
	Enter(s *cache.Scene, n *cache.Node, inst *cache.Node) VisitReturn
	Leave(s *cache.Scene, n *cache.Node, inst *cache.Node)
}

// Visit walks every top level node of s. It returns false when a visitor
// stopped the traversal.
func Visit(s *cache.Scene, v Visitor) bool {
	for _, id := range s.Root().Children {
		if !visitNode(s, s.Node(id), nil, v) {
			return false
		}
	}
	return true
}

// VisitNode walks the subtree rooted at n.
func VisitNode(s *cache.Scene, n *cache.Node, v Visitor) bool {
	return visitNode(s, n, nil, v)
}

func visitNode(s *cache.Scene, n *cache.Node, inst *cache.Node, v Visitor) bool {
	if n.IsInstance() {
		inst = n
		n = s.Master(n)
	}

	switch v.Enter(s, n, inst) {
	case Stop:
		return false
	case Prune:
		return true
	}
	for _, id := range n.Children {
		if !visitNode(s, s.Node(id), inst, v) {
			return false
		}
	}
	v.Leave(s, n, inst)
	return true
}

// IsRedirected reports whether n is the master an instance proxy points to,
// as opposed to a node further down the master subtree.
func IsRedirected(n, inst *cache.Node) bool {
	return inst != nil && inst.Master == n.ID
}

// Path returns the path of n as seen through inst: the master prefix of the
// node path is replaced by the proxy path.
func Path(s *cache.Scene, n, inst *cache.Node) string {
	if inst == nil {
		return n.Path
	}
	master := s.Master(inst)
	if rest, ok := strings.CutPrefix(n.Path, master.Path); ok {
		return inst.Path + rest
	}
	return n.Path
}

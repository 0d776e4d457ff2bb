package render

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNameTaken is returned when creating or renaming a node to a name
// already in use.
var ErrNameTaken = errors.New("node name already in use")

// Sink is the renderer node table. Implementations must be safe for
// concurrent use.
type Sink interface {
	CreateNode(typ, name string, parent *Node) (*Node, error)
	LookupNode(name string) *Node
	RenameNode(n *Node, name string) error
	DestroyNode(n *Node)
}

// MemorySink keeps nodes in memory in creation order.
type MemorySink struct {
	mu     sync.RWMutex
	byName map[string]*Node
	nodes  []*Node
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{byName: map[string]*Node{}}
}

// CreateNode implements Sink.
func (m *MemorySink) CreateNode(typ, name string, parent *Node) (*Node, error) {
	if name == "" {
		return nil, fmt.Errorf("creating %s: empty name", typ)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byName[name]; ok {
		return nil, fmt.Errorf("creating %s %q: %w", typ, name, ErrNameTaken)
	}
	n := newNode(typ, name, parent)
	m.byName[name] = n
	m.nodes = append(m.nodes, n)
	return n, nil
}

// LookupNode implements Sink.
func (m *MemorySink) LookupNode(name string) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byName[name]
}

// RenameNode implements Sink.
func (m *MemorySink) RenameNode(n *Node, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if other, ok := m.byName[name]; ok && other != n {
		return fmt.Errorf("renaming %q to %q: %w", n.name, name, ErrNameTaken)
	}
	delete(m.byName, n.name)
	n.name = name
	m.byName[name] = n
	return nil
}

// DestroyNode implements Sink.
func (m *MemorySink) DestroyNode(n *Node) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.byName[n.name] == n {
		delete(m.byName, n.name)
	}
	for i, x := range m.nodes {
		if x == n {
			m.nodes = append(m.nodes[:i], m.nodes[i+1:]...)
			break
		}
	}
}

// Nodes returns the live nodes in creation order.
func (m *MemorySink) Nodes() []*Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Node, len(m.nodes))
	copy(out, m.nodes)
	return out
}

// NodesOfType returns the live nodes of one type in creation order.
func (m *MemorySink) NodesOfType(typ string) []*Node {
	var out []*Node
	for _, n := range m.Nodes() {
		if n.typ == typ {
			out = append(out, n)
		}
	}
	return out
}

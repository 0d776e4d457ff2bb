package render

import (
	"fmt"
	"sync"
)

// Registry serializes node naming and instance master registration over a
// sink. Everything else happens outside its lock.
type Registry struct {
	mu      sync.Mutex
	sink    Sink
	masters map[string]*Node
}

// NewRegistry returns a registry creating nodes in sink.
func NewRegistry(sink Sink) *Registry {
	return &Registry{sink: sink, masters: map[string]*Node{}}
}

// Sink returns the underlying node table.
func (r *Registry) Sink() Sink {
	return r.sink
}

// Tx is the view of the registry inside a critical section.
type Tx struct {
	r *Registry
}

// Do runs fn while holding the registry lock.
func (r *Registry) Do(fn func(tx Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(Tx{r: r})
}

// UniqueName returns base, or base followed by the first free "_<n>"
// suffix when a node already uses it.
func (tx Tx) UniqueName(base string) string {
	if tx.r.sink.LookupNode(base) == nil {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s_%d", base, i)
		if tx.r.sink.LookupNode(name) == nil {
			return name
		}
	}
}

// CreateNode creates a node under a unique name derived from base.
func (tx Tx) CreateNode(typ, base string, parent *Node) (*Node, error) {
	return tx.r.sink.CreateNode(typ, tx.UniqueName(base), parent)
}

// Rename gives n a unique name derived from base.
func (tx Tx) Rename(n *Node, base string) error {
	if n.Name() == base {
		return nil
	}
	return tx.r.sink.RenameNode(n, tx.UniqueName(base))
}

// Destroy removes n from the sink.
func (tx Tx) Destroy(n *Node) {
	tx.r.sink.DestroyNode(n)
}

// Master returns the master node registered for key.
func (tx Tx) Master(key string) *Node {
	return tx.r.masters[key]
}

// SetMaster registers n as the master for key.
func (tx Tx) SetMaster(key string, n *Node) {
	tx.r.masters[key] = n
}

// CreateNode creates a uniquely named node under the registry lock.
func (r *Registry) CreateNode(typ, base string, parent *Node) (*Node, error) {
	var n *Node
	err := r.Do(func(tx Tx) error {
		var err error
		n, err = tx.CreateNode(typ, base, parent)
		return err
	})
	return n, err
}

// Master returns the master node registered for key.
func (r *Registry) Master(key string) *Node {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.masters[key]
}

// NumMasters returns the number of registered masters.
func (r *Registry) NumMasters() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.masters)
}

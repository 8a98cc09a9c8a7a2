package scene

// Set is an in-memory Graph that remembers which nodes are attached.
// It is not safe for concurrent use.
type Set struct {
	nodes map[*Node]struct{}
}

// NewSet creates an empty set.
func NewSet() *Set {
	return &Set{nodes: make(map[*Node]struct{})}
}

// Add attaches n. Adding an attached node is a no-op.
func (s *Set) Add(n *Node) {
	if n == nil {
		return
	}
	s.nodes[n] = struct{}{}
}

// Remove detaches n. Removing a detached node is a no-op.
func (s *Set) Remove(n *Node) {
	delete(s.nodes, n)
}

// Contains reports whether n is attached.
func (s *Set) Contains(n *Node) bool {
	_, ok := s.nodes[n]
	return ok
}

// Len returns the number of attached nodes.
func (s *Set) Len() int {
	return len(s.nodes)
}

// Each calls fn for every attached node in no particular order.
func (s *Set) Each(fn func(n *Node)) {
	for n := range s.nodes {
		fn(n)
	}
}

// Ensure Set satisfies Graph.
var _ Graph = (*Set)(nil)

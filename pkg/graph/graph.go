package graph

import (
	"fmt"
	"sort"
)

// NodeGraph is the read-only view of a node graph the compiler consumes.
type NodeGraph interface {
	// Nodes returns every node ordered by ascending ID.
	Nodes() []*Node
	// Node returns the node with the given ID, or nil.
	Node(id NodeID) *Node
}

// Graph is an in-memory NodeGraph. Node IDs are allocated from 1 upward,
// reusing the lowest freed ID first.
type Graph struct {
	nodes     map[NodeID]*Node
	nameIndex map[string]NodeID
	free      []NodeID // sorted ascending
	next      NodeID
}

var _ NodeGraph = (*Graph)(nil)

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		nodes:     make(map[NodeID]*Node),
		nameIndex: make(map[string]NodeID),
		next:      1,
	}
}

// Add inserts a node with a fresh ID and returns that ID. An empty name
// leaves the node unnamed.
func (g *Graph) Add(name string, c Content) NodeID {
	var id NodeID
	if len(g.free) > 0 {
		id = g.free[0]
		g.free = g.free[1:]
	} else {
		id = g.next
		g.next++
	}
	g.put(&Node{ID: id, Name: name, Content: c})
	return id
}

// Insert adds a node with a caller-chosen ID, as when loading a saved
// graph. The ID must be positive and unused.
func (g *Graph) Insert(n *Node) error {
	if n.ID <= ZeroID {
		return fmt.Errorf("graph: invalid node id %d", int(n.ID))
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("graph: duplicate node id %s", n.ID)
	}
	for i, f := range g.free {
		if f == n.ID {
			g.free = append(g.free[:i], g.free[i+1:]...)
			break
		}
	}
	for id := g.next; id < n.ID; id++ {
		g.free = append(g.free, id)
	}
	if n.ID >= g.next {
		g.next = n.ID + 1
	}
	g.put(n)
	return nil
}

func (g *Graph) put(n *Node) {
	g.nodes[n.ID] = n
	if n.Name != "" {
		g.nameIndex[n.Name] = n.ID
	}
}

// SetContent replaces the content of an existing node.
func (g *Graph) SetContent(id NodeID, c Content) error {
	n, ok := g.nodes[id]
	if !ok {
		return fmt.Errorf("graph: no node %s", id)
	}
	n.Content = c
	return nil
}

// Remove deletes a node and frees its ID. Links to it from other nodes are
// left in place and dangle.
func (g *Graph) Remove(id NodeID) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	delete(g.nodes, id)
	if n.Name != "" && g.nameIndex[n.Name] == id {
		delete(g.nameIndex, n.Name)
	}
	i := sort.Search(len(g.free), func(i int) bool { return g.free[i] >= id })
	g.free = append(g.free, 0)
	copy(g.free[i+1:], g.free[i:])
	g.free[i] = id
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	return g.nodes[id]
}

// Nodes returns every node ordered by ascending ID.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	id, ok := g.nameIndex[name]
	if !ok {
		return nil
	}
	return g.nodes[id]
}

// NodeCount returns the total number of nodes.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

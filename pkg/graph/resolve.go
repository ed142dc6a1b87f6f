package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// CycleError reports a dependency cycle. Node lies on the cycle and Cycle
// lists the cycle starting from Node, each entry depending on the next.
type CycleError struct {
	Node  NodeID
	Cycle []NodeID
}

func (e *CycleError) Error() string {
	parts := make([]string, 0, len(e.Cycle)+1)
	for _, id := range e.Cycle {
		parts = append(parts, id.String())
	}
	parts = append(parts, e.Node.String())
	return fmt.Sprintf("dependency cycle through node %s: %s", e.Node, strings.Join(parts, " -> "))
}

// AsCycleError extracts a CycleError from err's chain.
func AsCycleError(err error) (*CycleError, bool) {
	var ce *CycleError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// Resolve returns the IDs of every node in g ordered so that each node comes
// after all the nodes it links to. Among nodes that are ready at the same
// time, lower IDs come first, so the order is deterministic.
//
// Links to nodes that are not in g are ignored here; the consumer reports
// them when it is built. A cycle yields a *CycleError and no order.
func Resolve(g NodeGraph) ([]NodeID, error) {
	nodes := g.Nodes()

	present := make(map[NodeID]bool, len(nodes))
	for _, n := range nodes {
		present[n.ID] = true
	}

	indegree := make(map[NodeID]int, len(nodes))
	successors := make(map[NodeID][]NodeID, len(nodes))
	for _, n := range nodes {
		for _, dep := range n.Dependencies() {
			if !present[dep] {
				continue
			}
			successors[dep] = append(successors[dep], n.ID)
			indegree[n.ID]++
		}
	}

	var ready []NodeID
	for _, n := range nodes {
		if indegree[n.ID] == 0 {
			ready = append(ready, n.ID)
		}
	}

	order := make([]NodeID, 0, len(nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, succ := range successors[id] {
			indegree[succ]--
			if indegree[succ] == 0 {
				ready = insertSorted(ready, succ)
			}
		}
	}

	if len(order) < len(nodes) {
		return nil, findCycle(g, nodes, indegree)
	}
	return order, nil
}

func insertSorted(ids []NodeID, id NodeID) []NodeID {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// findCycle walks upstream through unresolved nodes until one repeats.
// Every unresolved node has at least one unresolved dependency, so the walk
// always ends on a cycle.
func findCycle(g NodeGraph, nodes []*Node, indegree map[NodeID]int) *CycleError {
	var start NodeID
	for _, n := range nodes {
		if indegree[n.ID] > 0 {
			start = n.ID
			break
		}
	}

	seen := map[NodeID]int{}
	var path []NodeID
	id := start
	for {
		if at, ok := seen[id]; ok {
			return &CycleError{Node: id, Cycle: path[at:]}
		}
		seen[id] = len(path)
		path = append(path, id)

		next := ZeroID
		for _, dep := range g.Node(id).Dependencies() {
			if indegree[dep] > 0 {
				next = dep
				break
			}
		}
		if next.IsZero() {
			// Unreachable for a consistent indegree map.
			return &CycleError{Node: id, Cycle: []NodeID{id}}
		}
		id = next
	}
}

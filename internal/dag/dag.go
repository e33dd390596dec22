package dag

import (
	"fmt"
	"slices"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph. If a node with
// the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.ensure(id)
}

func (g *Graph) ensure(id string) *node {
	if n, ok := g.nodes[id]; ok {
		return n
	}
	n := &node{id: id}
	g.nodes[id] = n
	g.order = append(g.order, id)
	return n
}

// HasNode reports whether the graph knows the given ID.
func (g *Graph) HasNode(id string) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// AddEdge records that `fromID` goes before `toID`. Both endpoints are
// created when missing and the relation is stored symmetrically. Adding an
// existing edge is a no-op. An error is returned for self-references.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode := g.ensure(fromID)
	toNode := g.ensure(toID)

	if !slices.Contains(fromNode.before, toID) {
		fromNode.before = append(fromNode.before, toID)
	}
	if !slices.Contains(toNode.after, fromID) {
		toNode.after = append(toNode.after, fromID)
	}
	return nil
}

// RemoveEdge deletes the `fromID` -> `toID` relation from both endpoints.
// Missing nodes or edges are ignored.
func (g *Graph) RemoveEdge(fromID, toID string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if n, ok := g.nodes[fromID]; ok {
		n.before = slices.DeleteFunc(n.before, func(s string) bool { return s == toID })
	}
	if n, ok := g.nodes[toID]; ok {
		n.after = slices.DeleteFunc(n.after, func(s string) bool { return s == fromID })
	}
}

// Before returns the IDs the given node goes before, in declaration order.
func (g *Graph) Before(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.before)
}

// After returns the IDs the given node goes after, in declaration order.
func (g *Graph) After(id string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	n, ok := g.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.after)
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	out := &Graph{
		nodes: make(map[string]*node, len(g.nodes)),
		order: slices.Clone(g.order),
	}
	for id, n := range g.nodes {
		out.nodes[id] = &node{id: id, before: slices.Clone(n.before), after: slices.Clone(n.after)}
	}
	return out
}

package dag

import "sync"

// Graph is a collection of command nodes and their ordering relations.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by command name.
	nodes map[string]*node
	// order records node creation order so iteration is deterministic.
	order []string
}

// node represents a single command in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using names), not by
// direct struct manipulation.
type node struct {
	// id is the command name.
	id string
	// before holds the commands this node goes before (successors).
	before []string
	// after holds the commands this node goes after (predecessors).
	after []string
}

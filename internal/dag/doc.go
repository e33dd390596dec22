// Package dag holds the command dependency graph and the resolver that turns a
// set of requested commands into a single linear execution order.
//
// The graph is an adjacency structure keyed by command name. Every edge is
// stored on both of its endpoints, so declaring "A goes before B" is the same
// operation as declaring "B goes after A" and the two views can never drift
// apart. Nodes are created on first mention, which lets definitions reference
// commands that are registered later.
//
// Resolve is a stable topological sort: commands that are simultaneously
// eligible keep the order in which they were requested. A cycle among the
// requested commands is reported as a CircularDependencyError instead of
// silently dropping the commands involved.
package dag

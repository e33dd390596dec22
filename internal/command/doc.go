// Package command stores command definitions and keeps the dependency graph
// in sync with them.
//
// Registration normalizes every definition before storing it. Inline
// definitions found in relation lists are registered first and replaced by
// their names. Binding relations are folded into the ordering relations
// ("require before" into "goes after", "next" into "goes before"). Every
// declared relation becomes an edge in a dag.Graph, which stores it on both
// endpoints. The resolver therefore sees one consistent graph no matter
// which side declared a relation.
//
// Registering a name twice replaces the earlier definition. Edges that only
// the replaced definition declared are removed.
package command

// Package graph builds the bipartite dependency graph between buildings and
// the infrastructure segments feeding them.
//
// Segments live in a single arena keyed by id and buildings only hold segment
// ids, so repairing a segment is immediately visible to every building that
// depends on it. The served-house count of a segment is the sum of the houses
// of every network row naming it.
package graph

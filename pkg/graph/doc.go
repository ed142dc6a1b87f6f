// Package graph defines the node graph consumed by the compiler.
// A node graph is a set of nodes, each carrying a typed content variant
// whose link fields name the upstream nodes it reads. Resolve orders the
// nodes so that every producer precedes its consumers.
package graph

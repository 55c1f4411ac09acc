// Copyright 2026, Met Office

// Package graph builds and represents a validated pipeline DAG. A graph is
// built once from an edge list and a settings map, checked for unknown nodes
// and cycles, and is immutable afterwards, so backends share it read-only
// across workers without synchronization.
package graph

import (
	"sort"

	"github.com/MetOffice/pp-systems-framework/proto"
)

// Graph is an arena-style adjacency structure: vertices and edges are indexed
// by small integers derived from NodeKeys. Vertex order is the sorted NodeKey
// order; edge order within a vertex is declaration order, which fixes the
// positional-input order for each consumer.
type Graph struct {
	nodes []proto.NodeKey           // arena: vertex index -> key, sorted by NodeKey order
	index map[proto.NodeKey]int     // key -> vertex index
	next  [][]int                   // out-edges per vertex, declaration order
	prev  [][]int                   // in-edges per vertex, declaration order
	specs []proto.NodeSpec          // vertex index -> settings
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Contains reports whether key is a vertex of g.
func (g *Graph) Contains(key proto.NodeKey) bool {
	_, ok := g.index[key]
	return ok
}

// Nodes returns all node keys in sorted order. The returned slice is a copy.
func (g *Graph) Nodes() []proto.NodeKey {
	nodes := make([]proto.NodeKey, len(g.nodes))
	copy(nodes, g.nodes)
	return nodes
}

// Spec returns the settings for key. The second return is false if key is
// not a vertex.
func (g *Graph) Spec(key proto.NodeKey) (proto.NodeSpec, bool) {
	i, ok := g.index[key]
	if !ok {
		return proto.NodeSpec{}, false
	}
	return g.specs[i], true
}

// Predecessors returns the direct predecessors of key in edge-declaration
// order. This order is the node's positional-input order; it must never be
// re-sorted.
func (g *Graph) Predecessors(key proto.NodeKey) []proto.NodeKey {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	return g.keys(g.prev[i])
}

// Successors returns the direct successors of key in edge-declaration order.
func (g *Graph) Successors(key proto.NodeKey) []proto.NodeKey {
	i, ok := g.index[key]
	if !ok {
		return nil
	}
	return g.keys(g.next[i])
}

// Roots returns the nodes with no incoming edges, in sorted order.
func (g *Graph) Roots() []proto.NodeKey {
	var roots []proto.NodeKey
	for i, key := range g.nodes {
		if len(g.prev[i]) == 0 {
			roots = append(roots, key)
		}
	}
	return roots
}

// Leaves returns the nodes with no outgoing edges, in sorted order.
func (g *Graph) Leaves() []proto.NodeKey {
	var leaves []proto.NodeKey
	for i, key := range g.nodes {
		if len(g.next[i]) == 0 {
			leaves = append(leaves, key)
		}
	}
	return leaves
}

func (g *Graph) keys(idx []int) []proto.NodeKey {
	keys := make([]proto.NodeKey, len(idx))
	for n, i := range idx {
		keys[n] = g.nodes[i]
	}
	return keys
}

// sortedKeys returns the keys of settings in NodeKey order. Map iteration
// order is random; the arena must not be.
func sortedKeys(settings map[proto.NodeKey]proto.NodeSpec) []proto.NodeKey {
	keys := make([]proto.NodeKey, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

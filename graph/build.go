// Copyright 2026, Met Office

package graph

import (
	"fmt"
	"strings"

	"github.com/MetOffice/pp-systems-framework/proto"
)

var _ error = UnknownNodeError{}

// UnknownNodeError is returned when an edge references a node that has no
// entry in the settings map.
type UnknownNodeError struct {
	Key proto.NodeKey
}

func (e UnknownNodeError) Error() string {
	return fmt.Sprintf("edge references node %s, which has no settings entry", e.Key)
}

var _ error = CyclicGraphError{}

// CyclicGraphError is returned when the edge set induces a cycle. Cycle lists
// the nodes of one discovered cycle in traversal order; the first and last
// entries are the same node.
type CyclicGraphError struct {
	Cycle []proto.NodeKey
}

func (e CyclicGraphError) Error() string {
	names := make([]string, len(e.Cycle))
	for i, key := range e.Cycle {
		names[i] = key.String()
	}
	return fmt.Sprintf("pipeline graph contains a cycle: %s", strings.Join(names, " -> "))
}

// Build constructs a validated DAG from an edge list and a settings map.
// Every key in settings becomes a vertex, whether or not an edge mentions
// it. Identical edges are deduplicated, keeping the first occurrence so that
// each consumer's positional-input order is the first-seen declaration
// order. Build fails with UnknownNodeError if an edge endpoint is missing
// from settings, and with CyclicGraphError if the edges induce a cycle
// (self-loops included). Build has no side effects; the returned Graph is
// immutable.
func Build(edges []proto.Edge, settings map[proto.NodeKey]proto.NodeSpec) (*Graph, error) {
	keys := sortedKeys(settings)
	g := &Graph{
		nodes: keys,
		index: make(map[proto.NodeKey]int, len(keys)),
		next:  make([][]int, len(keys)),
		prev:  make([][]int, len(keys)),
		specs: make([]proto.NodeSpec, len(keys)),
	}
	for i, key := range keys {
		g.index[key] = i
		g.specs[i] = settings[key]
	}

	seen := map[proto.Edge]bool{}
	for _, edge := range edges {
		from, ok := g.index[edge.From]
		if !ok {
			return nil, UnknownNodeError{Key: edge.From}
		}
		to, ok := g.index[edge.To]
		if !ok {
			return nil, UnknownNodeError{Key: edge.To}
		}
		if from == to {
			return nil, CyclicGraphError{Cycle: []proto.NodeKey{edge.From, edge.To}}
		}
		if seen[edge] {
			continue // duplicate edge, first occurrence wins
		}
		seen[edge] = true
		g.next[from] = append(g.next[from], to)
		g.prev[to] = append(g.prev[to], from)
	}

	if cycle := findCycle(g); cycle != nil {
		return nil, CyclicGraphError{Cycle: cycle}
	}
	return g, nil
}

// findCycle runs a DFS over every vertex, tracking the active recursion
// path. It returns one cycle as a key path (first == last), or nil if the
// graph is acyclic.
func findCycle(g *Graph) []proto.NodeKey {
	const (
		white = iota // unvisited
		grey         // on the active path
		black        // fully explored
	)
	color := make([]int, len(g.nodes))
	var path []int

	var visit func(int) []proto.NodeKey
	visit = func(i int) []proto.NodeKey {
		color[i] = grey
		path = append(path, i)
		for _, next := range g.next[i] {
			switch color[next] {
			case grey:
				// next is on the active path: the cycle is everything on
				// the path from next onwards, closed with next itself.
				var cycle []proto.NodeKey
				start := 0
				for n, v := range path {
					if v == next {
						start = n
						break
					}
				}
				for _, v := range path[start:] {
					cycle = append(cycle, g.nodes[v])
				}
				return append(cycle, g.nodes[next])
			case white:
				if cycle := visit(next); cycle != nil {
					return cycle
				}
			}
		}
		path = path[:len(path)-1]
		color[i] = black
		return nil
	}

	for i := range g.nodes {
		if color[i] == white {
			if cycle := visit(i); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

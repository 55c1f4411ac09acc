// Copyright 2026, Met Office

package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/MetOffice/pp-systems-framework/proto"
)

func key(step string) proto.NodeKey {
	return proto.NodeKey{Step: step, LeadTime: 6 * time.Hour}
}

func settingsFor(steps ...string) map[proto.NodeKey]proto.NodeSpec {
	settings := map[proto.NodeKey]proto.NodeSpec{}
	for _, s := range steps {
		settings[key(s)] = proto.NodeSpec{Call: "core.constant"}
	}
	return settings
}

func edge(from, to string) proto.Edge {
	return proto.Edge{From: key(from), To: key(to)}
}

func TestBuildVertexSetMatchesSettings(t *testing.T) {
	// Nodes appear as vertices whether or not an edge mentions them.
	settings := settingsFor("a", "b", "c", "isolated")
	g, err := Build([]proto.Edge{edge("a", "b"), edge("b", "c")}, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}

	expect := []proto.NodeKey{key("a"), key("b"), key("c"), key("isolated")}
	if diff := deep.Equal(g.Nodes(), expect); diff != nil {
		t.Error(diff)
	}
	if g.Len() != 4 {
		t.Errorf("Len = %d, expected 4", g.Len())
	}
}

func TestBuildUnknownNode(t *testing.T) {
	settings := settingsFor("a")
	_, err := Build([]proto.Edge{edge("a", "ghost")}, settings)
	if err == nil {
		t.Fatal("expected an error, got none")
	}
	var unknownErr UnknownNodeError
	if !errors.As(err, &unknownErr) {
		t.Fatalf("error type = %T, expected UnknownNodeError", err)
	}
	if unknownErr.Key != key("ghost") {
		t.Errorf("error names %s, expected %s", unknownErr.Key, key("ghost"))
	}
}

func TestBuildCycle(t *testing.T) {
	// a -> b -> c -> a must fail, naming at least one node on the cycle.
	settings := settingsFor("a", "b", "c")
	_, err := Build([]proto.Edge{edge("a", "b"), edge("b", "c"), edge("c", "a")}, settings)
	if err == nil {
		t.Fatal("expected an error, got none")
	}
	var cyclicErr CyclicGraphError
	if !errors.As(err, &cyclicErr) {
		t.Fatalf("error type = %T, expected CyclicGraphError", err)
	}
	if len(cyclicErr.Cycle) == 0 {
		t.Fatal("cycle error names no nodes")
	}
	onCycle := map[proto.NodeKey]bool{key("a"): true, key("b"): true, key("c"): true}
	for _, k := range cyclicErr.Cycle {
		if !onCycle[k] {
			t.Errorf("cycle error names %s, which is not on the cycle", k)
		}
	}
}

func TestBuildSelfLoop(t *testing.T) {
	settings := settingsFor("a")
	_, err := Build([]proto.Edge{edge("a", "a")}, settings)
	var cyclicErr CyclicGraphError
	if !errors.As(err, &cyclicErr) {
		t.Fatalf("error = %v, expected CyclicGraphError", err)
	}
}

func TestBuildAcyclicEmptyEdges(t *testing.T) {
	g, err := Build(nil, settingsFor("a", "b"))
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	if diff := deep.Equal(g.Roots(), []proto.NodeKey{key("a"), key("b")}); diff != nil {
		t.Error(diff)
	}
}

func TestPredecessorOrderIsEdgeOrder(t *testing.T) {
	// z's inputs must come in edge-declaration order, not sorted order.
	settings := settingsFor("m", "a", "t", "z")
	g, err := Build([]proto.Edge{
		edge("t", "z"),
		edge("a", "z"),
		edge("m", "z"),
	}, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	expect := []proto.NodeKey{key("t"), key("a"), key("m")}
	if diff := deep.Equal(g.Predecessors(key("z")), expect); diff != nil {
		t.Error(diff)
	}
}

func TestDuplicateEdgesKeepFirstSeenOrder(t *testing.T) {
	settings := settingsFor("a", "b", "z")
	g, err := Build([]proto.Edge{
		edge("b", "z"),
		edge("a", "z"),
		edge("b", "z"), // duplicate, must not reorder or double z's inputs
	}, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	expect := []proto.NodeKey{key("b"), key("a")}
	if diff := deep.Equal(g.Predecessors(key("z")), expect); diff != nil {
		t.Error(diff)
	}
}

func TestRootsAndLeaves(t *testing.T) {
	settings := settingsFor("a", "b", "c", "d", "e")
	// a -> b -> e, c -> d -> e
	g, err := Build([]proto.Edge{
		edge("a", "b"),
		edge("c", "d"),
		edge("b", "e"),
		edge("d", "e"),
	}, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	if diff := deep.Equal(g.Roots(), []proto.NodeKey{key("a"), key("c")}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(g.Leaves(), []proto.NodeKey{key("e")}); diff != nil {
		t.Error(diff)
	}
}

func TestSpec(t *testing.T) {
	settings := map[proto.NodeKey]proto.NodeSpec{
		key("a"): {Call: "core.constant", Args: map[string]interface{}{"value": 1}},
	}
	g, err := Build(nil, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	spec, ok := g.Spec(key("a"))
	if !ok {
		t.Fatal("Spec(a) not found")
	}
	if spec.Call != "core.constant" {
		t.Errorf("Call = %s, expected core.constant", spec.Call)
	}
	if _, ok := g.Spec(key("ghost")); ok {
		t.Error("Spec(ghost) found, expected not found")
	}
}

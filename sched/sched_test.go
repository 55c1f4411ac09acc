// Copyright 2026, Met Office

package sched

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/resolve"
	"github.com/MetOffice/pp-systems-framework/step"
)

func key(s string) proto.NodeKey {
	return proto.NodeKey{Step: s, LeadTime: 6 * time.Hour}
}

// concatStep returns a step that joins its string inputs and its own step
// number with "_"; a root node returns just the number.
func concatStep(n int) step.Step {
	return step.Func(func(_ context.Context, inputs []interface{}, _ map[string]interface{}) (interface{}, error) {
		parts := make([]string, 0, len(inputs)+1)
		for _, in := range inputs {
			parts = append(parts, fmt.Sprintf("%v", in))
		}
		parts = append(parts, strconv.Itoa(n))
		return strings.Join(parts, "_"), nil
	})
}

// scenarioGraph builds the reference pipeline:
//
//	a(1) -> b(2) -> e(5)
//	c(3) -> d(4) -> e(5)
//
// with expected results a="1", b="1_2", c="3", d="3_4", e="1_2_3_4_5".
func scenarioGraph(t *testing.T) *graph.Graph {
	t.Helper()
	settings := map[proto.NodeKey]proto.NodeSpec{
		key("a"): {Direct: concatStep(1)},
		key("b"): {Direct: concatStep(2)},
		key("c"): {Direct: concatStep(3)},
		key("d"): {Direct: concatStep(4)},
		key("e"): {Direct: concatStep(5)},
	}
	edges := []proto.Edge{
		{From: key("a"), To: key("b")},
		{From: key("c"), To: key("d")},
		{From: key("b"), To: key("e")},
		{From: key("d"), To: key("e")},
	}
	g, err := graph.Build(edges, settings)
	if err != nil {
		t.Fatalf("Build: %s", err)
	}
	return g
}

var scenarioExpect = map[proto.NodeKey]string{
	key("a"): "1",
	key("b"): "1_2",
	key("c"): "3",
	key("d"): "3_4",
	key("e"): "1_2_3_4_5",
}

func checkScenarioReport(t *testing.T, report Report) {
	t.Helper()
	if report.State != proto.STATE_COMPLETE {
		t.Fatalf("run state = %s, expected COMPLETE (failures: %v)",
			proto.StateName[report.State], report.Failures())
	}
	if err := report.Err(); err != nil {
		t.Fatalf("report.Err() = %s, expected nil", err)
	}
	if len(report.Results) != len(scenarioExpect) {
		t.Fatalf("got %d results, expected %d", len(report.Results), len(scenarioExpect))
	}
	for k, expect := range scenarioExpect {
		res, ok := report.Results[k]
		if !ok {
			t.Errorf("no result for %s", k)
			continue
		}
		if res.State != proto.STATE_COMPLETE {
			t.Errorf("%s state = %s, expected COMPLETE", k, proto.StateName[res.State])
		}
		if res.Value != expect {
			t.Errorf("%s value = %v, expected %s", k, res.Value, expect)
		}
	}
}

func resolverForTest() *resolve.Resolver {
	return resolve.NewResolver(step.NewRegistry())
}

func makeScheduler(t *testing.T, backend string, g *graph.Graph) Scheduler {
	t.Helper()
	s, err := Make(backend, Config{
		Graph:    g,
		Resolver: resolve.NewResolver(step.NewRegistry()),
	})
	if err != nil {
		t.Fatalf("Make(%s): %s", backend, err)
	}
	return s
}

func TestMakeUnknownBackend(t *testing.T) {
	_, err := Make("teleport", Config{
		Graph:    scenarioGraph(t),
		Resolver: resolve.NewResolver(step.NewRegistry()),
	})
	if err == nil {
		t.Fatal("expected an error, got none")
	}
	if _, ok := err.(BackendError); !ok {
		t.Errorf("error type = %T, expected BackendError", err)
	}
}

func TestMakeMissingGraph(t *testing.T) {
	_, err := Make(BackendSequential, Config{Resolver: resolve.NewResolver(step.NewRegistry())})
	if err == nil {
		t.Fatal("expected an error, got none")
	}
}

func TestReportErrSurfacesAllFailures(t *testing.T) {
	report := Report{
		RunId: "test",
		State: proto.STATE_FAIL,
		Results: map[proto.NodeKey]proto.Result{
			key("a"): {Key: key("a"), State: proto.STATE_FAIL, Error: "boom"},
			key("b"): {Key: key("b"), State: proto.STATE_BLOCKED},
			key("c"): {Key: key("c"), State: proto.STATE_COMPLETE},
		},
	}
	failures := report.Failures()
	if len(failures) != 2 {
		t.Fatalf("got %d failures, expected 2", len(failures))
	}
	// Sorted by key: a before b.
	if failures[0].Key != key("a") || failures[1].Key != key("b") {
		t.Errorf("failures = %v, expected [a b]", failures)
	}
	err := report.Err()
	if err == nil {
		t.Fatal("Err() = nil, expected an error")
	}
	for _, want := range []string{key("a").String(), key("b").String()} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Err() %q does not mention %s", err, want)
		}
	}
}

// Copyright 2026, Met Office

package sched

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
)

// sequential runs nodes one at a time in a deterministic total order: the
// topological sort of the graph with ties broken by NodeKey ordering. Same
// graph, same order, every run.
type sequential struct {
	engine
}

func (s *sequential) Run(ctx context.Context) (Report, error) {
	rs, logger, runId := s.begin()
	logger.Info("sequential run started")
	defer logger.Info("sequential run done")

	cancelled := false
	for _, key := range topoOrder(s.graph) {
		if !cancelled && ctx.Err() != nil {
			cancelled = true
			logger.Warn("run cancelled - no more nodes will be dispatched")
		}

		var res proto.Result
		if failed := rs.failedPreds(key); len(failed) > 0 {
			res = blocked(key, failed)
			logger.WithField("node", key.String()).Warnf("node blocked: %s", res.Error)
		} else if cancelled || rs.stoppedPreds(key) {
			res = proto.Result{Key: key, State: proto.STATE_STOPPED}
		} else {
			res = s.runNode(ctx, rs, logger, key)
			if res.State == proto.STATE_STOPPED {
				cancelled = true
			}
		}
		if err := rs.put(res); err != nil {
			logger.WithField("node", key.String()).Errorf("%s", err)
		}
	}

	return report(runId, rs, cancelled), nil
}

// topoOrder returns a topological order of g. Among simultaneously ready
// nodes the smallest NodeKey goes first, making the order reproducible.
// Build guarantees acyclicity, so the order always covers the whole graph.
func topoOrder(g *graph.Graph) []proto.NodeKey {
	waiting := map[proto.NodeKey]int{}
	for _, key := range g.Nodes() {
		waiting[key] = len(g.Predecessors(key))
	}

	var ready []proto.NodeKey
	for _, key := range g.Roots() {
		ready = append(ready, key)
	}

	order := make([]proto.NodeKey, 0, g.Len())
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Less(ready[j]) })
		key := ready[0]
		ready = ready[1:]
		order = append(order, key)
		for _, next := range g.Successors(key) {
			waiting[next]--
			if waiting[next] == 0 {
				ready = append(ready, next)
			}
		}
	}
	return order
}

// blocked builds the terminal result for a node that will never execute
// because at least one predecessor failed.
func blocked(key proto.NodeKey, failed []proto.NodeKey) proto.Result {
	names := make([]string, len(failed))
	for i, pred := range failed {
		names[i] = pred.String()
	}
	return proto.Result{
		Key:   key,
		State: proto.STATE_BLOCKED,
		Error: fmt.Sprintf("blocked by failed predecessor(s): %s", strings.Join(names, ", ")),
	}
}

// report derives the run-level outcome from the recorded results.
// Cancellation takes precedence: a cancelled run is STOPPED, not FAIL, even
// if some nodes had already failed.
func report(runId string, rs *runState, cancelled bool) Report {
	results := rs.resultMap()
	state := proto.STATE_COMPLETE
	for _, res := range results {
		if res.Failed() {
			state = proto.STATE_FAIL
			break
		}
	}
	if cancelled {
		state = proto.STATE_STOPPED
	}
	return Report{RunId: runId, State: state, Results: results}
}

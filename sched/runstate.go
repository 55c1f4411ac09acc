// Copyright 2026, Met Office

package sched

import (
	"errors"
	"fmt"
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
)

var (
	// Returned by put when a result already exists for the node. Results are
	// write-once per node per run; a second write is a scheduling bug.
	ErrResultExists = errors.New("result already recorded for node")
)

// runState is the per-run result store: NodeKey -> terminal Result, plus the
// set of nodes currently executing. Each result slot is written exactly once,
// by whichever worker executed the node, and read many times afterwards by
// successors assembling their inputs. The concurrent map is the only
// synchronization the store needs. A runState is never shared across runs.
type runState struct {
	graph   *graph.Graph
	results cmap.ConcurrentMap[string, proto.Result]
	running cmap.ConcurrentMap[string, time.Time]
}

func newRunState(g *graph.Graph) *runState {
	return &runState{
		graph:   g,
		results: cmap.New[proto.Result](),
		running: cmap.New[time.Time](),
	}
}

// put records a node's terminal result. Write-once: recording a second
// result for the same node fails with ErrResultExists and leaves the first
// in place.
func (rs *runState) put(res proto.Result) error {
	if !rs.results.SetIfAbsent(res.Key.String(), res) {
		return ErrResultExists
	}
	rs.running.Remove(res.Key.String())
	return nil
}

// get returns the terminal result for key, if the node has reached one.
func (rs *runState) get(key proto.NodeKey) (proto.Result, bool) {
	return rs.results.Get(key.String())
}

// setRunning marks key as executing, for status snapshots only.
func (rs *runState) setRunning(key proto.NodeKey) {
	rs.running.Set(key.String(), time.Now())
}

// assemble collects the positional inputs for key: its direct predecessors'
// result values, in the order the predecessor edges were declared. The
// scheduler must not call assemble before every predecessor has completed
// successfully; a missing or failed predecessor result here is a scheduling
// bug, not a user error.
func (rs *runState) assemble(key proto.NodeKey) ([]interface{}, error) {
	preds := rs.graph.Predecessors(key)
	inputs := make([]interface{}, len(preds))
	for i, pred := range preds {
		res, ok := rs.get(pred)
		if !ok {
			return nil, fmt.Errorf("assembling inputs for %s: predecessor %s has no result", key, pred)
		}
		if res.State != proto.STATE_COMPLETE {
			return nil, fmt.Errorf("assembling inputs for %s: predecessor %s is %s",
				key, pred, proto.StateName[res.State])
		}
		inputs[i] = res.Value
	}
	return inputs, nil
}

// failedPreds returns the failed direct predecessors of key, in edge order.
func (rs *runState) failedPreds(key proto.NodeKey) []proto.NodeKey {
	var failed []proto.NodeKey
	for _, pred := range rs.graph.Predecessors(key) {
		if res, ok := rs.get(pred); ok && res.Failed() {
			failed = append(failed, pred)
		}
	}
	return failed
}

// stoppedPreds reports whether any direct predecessor of key was stopped by
// cancellation.
func (rs *runState) stoppedPreds(key proto.NodeKey) bool {
	for _, pred := range rs.graph.Predecessors(key) {
		if res, ok := rs.get(pred); ok && res.State == proto.STATE_STOPPED {
			return true
		}
	}
	return false
}

// resultMap copies the recorded results into a plain map for the run report.
func (rs *runState) resultMap() map[proto.NodeKey]proto.Result {
	out := make(map[proto.NodeKey]proto.Result, rs.results.Count())
	for _, res := range rs.results.Items() {
		out[res.Key] = res
	}
	return out
}

// status snapshots the run for Scheduler.Status.
func (rs *runState) status(runId string) RunStatus {
	var running []proto.NodeKey
	for name := range rs.running.Items() {
		if key, err := proto.ParseNodeKey(name); err == nil {
			running = append(running, key)
		}
	}
	sort.Slice(running, func(i, j int) bool { return running[i].Less(running[j]) })
	return RunStatus{
		RunId:   runId,
		Running: running,
		Done:    rs.results.Count(),
		Total:   rs.graph.Len(),
	}
}

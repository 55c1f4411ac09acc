// Copyright 2026, Met Office

// Package sched schedules and dispatches pipeline node execution. It
// provides three interchangeable backends behind one Scheduler contract:
// sequential (strict topological order, fully deterministic), parallel (a
// fixed-size worker pool consuming ready nodes), and distributed (ready
// nodes are submitted to a remote task-execution service). All backends
// honor the same guarantees: a node is never dispatched before every
// predecessor has completed successfully, each node executes at most once
// per run, and a failed node blocks its descendants while unrelated
// branches run to completion.
package sched

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/resolve"
)

// Backend names accepted by Make.
const (
	BackendSequential  = "sequential"
	BackendParallel    = "parallel"
	BackendDistributed = "distributed"
)

const defaultWorkers = 4

// A Scheduler runs one pipeline graph, possibly many times. Schedulers are
// stateless between runs; per-run state lives in the run itself.
type Scheduler interface {
	// Run walks the graph and executes every node whose predecessors all
	// complete successfully, blocking until no runnable work remains or ctx
	// is cancelled. The report contains a terminal Result for every node
	// that reached a terminal state. Run returns an error only when the
	// backend itself could not complete the run (BackendError); node
	// failures are reported in the Report, not as an error.
	Run(ctx context.Context) (Report, error)

	// Status returns a snapshot of the in-flight run: which nodes are
	// currently executing and how much of the graph is done. Safe to call
	// from another goroutine while Run is blocked.
	Status() RunStatus
}

// Config carries everything a backend needs. Graph and Resolver are
// required; the rest have defaults.
type Config struct {
	Graph    *graph.Graph
	Resolver *resolve.Resolver

	// Workers bounds concurrency for the parallel backend. Defaults to 4.
	Workers int

	// TaskRunner submits node executions to the external facility. Required
	// by the distributed backend, ignored by the others.
	TaskRunner TaskRunner

	// Hook observes node invocations. Defaults to NopHook.
	Hook Hook

	// Logger is the base log entry for the run. Defaults to the standard
	// logrus logger.
	Logger *log.Entry
}

// Make returns a Scheduler for the named backend. Unknown backend names and
// missing required config are BackendErrors.
func Make(backend string, cfg Config) (Scheduler, error) {
	if cfg.Graph == nil {
		return nil, BackendError{Backend: backend, Err: fmt.Errorf("no graph")}
	}
	if cfg.Resolver == nil && backend != BackendDistributed {
		return nil, BackendError{Backend: backend, Err: fmt.Errorf("no resolver")}
	}
	if cfg.Hook == nil {
		cfg.Hook = NopHook()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewEntry(log.StandardLogger())
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	switch backend {
	case BackendSequential:
		return &sequential{engine: newEngine(cfg)}, nil
	case BackendParallel:
		return &pool{engine: newEngine(cfg), workers: cfg.Workers}, nil
	case BackendDistributed:
		if cfg.TaskRunner == nil {
			return nil, BackendError{Backend: backend, Err: fmt.Errorf("no task runner")}
		}
		return &distributed{engine: newEngine(cfg), client: cfg.TaskRunner}, nil
	default:
		return nil, BackendError{Backend: backend, Err: fmt.Errorf("unknown backend")}
	}
}

// RunStatus is a point-in-time view of a run.
type RunStatus struct {
	RunId   string          `json:"runId"`
	Running []proto.NodeKey `json:"running"` // sorted
	Done    int             `json:"done"`    // nodes in a terminal state
	Total   int             `json:"total"`
}

// Report is the outcome of one run: the run-level state plus the terminal
// Result of every node that reached one. Nodes left pending by a cancelled
// run are recorded with state STOPPED.
type Report struct {
	RunId   string
	State   byte // STATE_COMPLETE, STATE_FAIL, or STATE_STOPPED
	Results map[proto.NodeKey]proto.Result
}

// Failures returns every failed, timed-out, or blocked node, sorted by key.
// The full set is surfaced, not just the first failure, so independent
// branches can be debugged in one pass.
func (r Report) Failures() []proto.Result {
	var failures []proto.Result
	for _, res := range r.Results {
		if res.Failed() {
			failures = append(failures, res)
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Key.Less(failures[j].Key) })
	return failures
}

// Err returns nil for a fully successful run, and an error summarizing the
// failure set otherwise.
func (r Report) Err() error {
	if r.State == proto.STATE_COMPLETE {
		return nil
	}
	failures := r.Failures()
	if len(failures) == 0 {
		return fmt.Errorf("run %s %s", r.RunId, proto.StateName[r.State])
	}
	names := make([]string, len(failures))
	for i, res := range failures {
		names[i] = fmt.Sprintf("%s (%s)", res.Key, proto.StateName[res.State])
	}
	return fmt.Errorf("run %s %s: %d of %d nodes failed: %v",
		r.RunId, proto.StateName[r.State], len(failures), len(r.Results), names)
}

// Copyright 2026, Met Office

package sched

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/graph"
	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/resolve"
	"github.com/MetOffice/pp-systems-framework/step"
)

// ExecuteTask runs one wire task against a step registry, with the same
// timeout and panic handling as local execution. Remote workers call this to
// execute submitted tasks; binding is per-task because a shared worker
// serves tasks from many pipelines.
func ExecuteTask(ctx context.Context, registry *step.Registry, task proto.Task) proto.Result {
	call, err := registry.Resolve(task.Call)
	if err != nil {
		return failure(task.Key, proto.STATE_FAIL, err)
	}
	u := resolve.Bind(task.Key, task.Call, call, task.Args, task.Timeout)
	return execute(ctx, u, task.Inputs)
}

// engine holds what every backend needs to execute single nodes: the shared
// read-only graph and resolver, the observation hook, and the state of the
// current run (for Status). Backends embed it and add their own dispatch.
type engine struct {
	graph    *graph.Graph
	resolver *resolve.Resolver
	hook     Hook
	logger   *log.Entry

	mu    *sync.Mutex // guards runId + state
	runId string
	state *runState
}

func newEngine(cfg Config) engine {
	return engine{
		graph:    cfg.Graph,
		resolver: cfg.Resolver,
		hook:     cfg.Hook,
		logger:   cfg.Logger,
		mu:       &sync.Mutex{},
	}
}

// begin starts a new run: fresh run state, fresh run id, run-scoped logger.
func (e *engine) begin() (*runState, *log.Entry, string) {
	rs := newRunState(e.graph)
	runId := xid.New().String()
	e.mu.Lock()
	e.runId = runId
	e.state = rs
	e.mu.Unlock()
	return rs, e.logger.WithFields(log.Fields{"runId": runId}), runId
}

// Status implements Scheduler for all backends.
func (e *engine) Status() RunStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return RunStatus{}
	}
	return e.state.status(e.runId)
}

// runNode resolves, assembles, and executes one node, returning its terminal
// result. The caller guarantees every predecessor completed successfully.
func (e *engine) runNode(ctx context.Context, rs *runState, logger *log.Entry, key proto.NodeKey) proto.Result {
	nLogger := logger.WithFields(log.Fields{"node": key.String()})

	spec, ok := e.graph.Spec(key)
	if !ok {
		// Unreachable for nodes dispatched from the graph itself.
		return failure(key, proto.STATE_FAIL, fmt.Errorf("node not in graph"))
	}

	u, err := e.resolver.Resolve(key, spec)
	if err != nil {
		// Resolve-time failure is fatal for this node only; it is converted
		// to a node failure and propagates as blocking to descendants.
		nLogger.Errorf("cannot resolve step %q: %s", spec.Call, err)
		return failure(key, proto.STATE_FAIL, err)
	}

	inputs, err := rs.assemble(key)
	if err != nil {
		nLogger.Errorf("%s", err)
		return failure(key, proto.STATE_FAIL, err)
	}

	e.hook.BeforeNode(key, u.Ref, inputs, u.Args)
	rs.setRunning(key)
	nLogger.Info("running node")

	res := execute(ctx, u, inputs)

	e.hook.AfterNode(res)
	switch {
	case res.State == proto.STATE_COMPLETE:
		nLogger.Info("node complete")
	case res.State == proto.STATE_STOPPED:
		nLogger.Warn("node stopped by cancellation")
	default:
		nLogger.Errorf("node %s: %s", proto.StateName[res.State], res.Error)
	}
	return res
}

// execute invokes a bound unit, enforcing the node's timeout and containing
// panics. The step runs in its own goroutine so a step that ignores its
// context cannot wedge the scheduler past the timeout; an abandoned step's
// eventual return is discarded.
func execute(ctx context.Context, u *resolve.BoundUnit, inputs []interface{}) proto.Result {
	runCtx := ctx
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	type ret struct {
		value interface{}
		err   error
	}
	done := make(chan ret, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- ret{err: fmt.Errorf("step panicked: %v", p)}
			}
		}()
		value, err := u.Invoke(runCtx, inputs)
		done <- ret{value: value, err: err}
	}()

	var r ret
	select {
	case r = <-done:
	case <-runCtx.Done():
		r = ret{err: runCtx.Err()}
	}

	if r.err == nil {
		return proto.Result{Key: u.Key, State: proto.STATE_COMPLETE, Value: r.value}
	}

	state := proto.STATE_FAIL
	if u.Timeout > 0 && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() == nil {
		// The node's own deadline elapsed; treated as failed for propagation.
		state = proto.STATE_TIMEOUT
	} else if ctx.Err() != nil {
		// The whole run was cancelled while this node was in flight.
		state = proto.STATE_STOPPED
	}
	return failure(u.Key, state, r.err)
}

func failure(key proto.NodeKey, state byte, err error) proto.Result {
	return proto.Result{
		Key:   key,
		State: state,
		Error: NodeExecutionError{Key: key, Err: err}.Error(),
	}
}

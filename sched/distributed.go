// Copyright 2026, Met Office

package sched

import (
	"context"
	"fmt"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/MetOffice/pp-systems-framework/proto"
)

// A TaskRunner executes single node tasks on an external facility, e.g. the
// remote worker HTTP client. A returned error means the submission itself
// failed (transport, protocol); a node whose step failed comes back as a
// normal Result with a failure state, not an error.
type TaskRunner interface {
	RunTask(ctx context.Context, task proto.Task) (proto.Result, error)
}

// distributed delegates node execution to an external task-execution
// facility. The ready-node protocol still runs locally: the controller
// tracks completions and submits each newly ready node as one task. The
// facility bounds its own concurrency; submissions are in flight
// concurrently, one goroutine each. A submission failure is fatal to the
// whole run: nothing new is submitted and the run returns a BackendError.
type distributed struct {
	engine
	client TaskRunner
}

func (s *distributed) Run(ctx context.Context) (Report, error) {
	rs, logger, runId := s.begin()
	logger.Info("distributed run started")
	defer logger.Info("distributed run done")

	// Remote workers resolve call references in their own registries, so
	// every node must carry a symbolic reference. A direct step value cannot
	// cross the wire; refusing up front beats failing mid-run.
	for _, key := range s.graph.Nodes() {
		spec, _ := s.graph.Spec(key)
		if spec.Call == "" {
			err := BackendError{
				Backend: BackendDistributed,
				Err:     fmt.Errorf("node %s has no symbolic call reference; direct steps cannot be submitted to remote workers", key),
			}
			return Report{RunId: runId, State: proto.STATE_FAIL, Results: map[proto.NodeKey]proto.Result{}}, err
		}
	}

	total := s.graph.Len()
	if total == 0 {
		return report(runId, rs, false), nil
	}

	doneChan := make(chan proto.Result, total)
	errChan := make(chan error, total)

	submit := func(key proto.NodeKey) {
		go func() {
			res, err := s.submitNode(ctx, rs, logger, key)
			if err != nil {
				errChan <- err
				res = failure(key, proto.STATE_FAIL, err)
			}
			if err := rs.put(res); err != nil {
				logger.WithField("node", key.String()).Errorf("%s", err)
				return
			}
			doneChan <- res
		}()
	}

	waiting := map[proto.NodeKey]int{}
	for _, key := range s.graph.Nodes() {
		waiting[key] = len(s.graph.Predecessors(key))
	}

	cancelled := ctx.Err() != nil // user cancellation via ctx
	var fatalErr error            // first submission failure
	halted := func() bool { return cancelled || fatalErr != nil }

	settle := func(res proto.Result) {
		if err := rs.put(res); err != nil {
			logger.WithField("node", res.Key.String()).Errorf("%s", err)
			return
		}
		doneChan <- res
	}

	for _, key := range s.graph.Roots() {
		if halted() {
			settle(proto.Result{Key: key, State: proto.STATE_STOPPED})
			continue
		}
		submit(key)
	}

	for done := 0; done < total; {
		var res proto.Result
		if halted() {
			res = <-doneChan
		} else {
			select {
			case res = <-doneChan:
			case err := <-errChan:
				fatalErr = err
				logger.Errorf("task submission failed - no new nodes will be submitted: %s", err)
				continue
			case <-ctx.Done():
				cancelled = true
				logger.Warn("run cancelled - no new nodes will be submitted")
				continue
			}
		}
		done++

		// A STOPPED result means the run context was cancelled while the node
		// was in flight; the select may never observe ctx.Done when the last
		// completion events are already queued.
		if res.State == proto.STATE_STOPPED && !cancelled {
			cancelled = true
			logger.Warn("run cancelled - no new nodes will be submitted")
		}

		for _, next := range s.graph.Successors(res.Key) {
			waiting[next]--
			if waiting[next] > 0 {
				continue
			}
			if failed := rs.failedPreds(next); len(failed) > 0 {
				b := blocked(next, failed)
				logger.WithField("node", next.String()).Warnf("node blocked: %s", b.Error)
				settle(b)
			} else if halted() || rs.stoppedPreds(next) {
				settle(proto.Result{Key: next, State: proto.STATE_STOPPED})
			} else {
				submit(next)
			}
		}
	}

	rep := report(runId, rs, cancelled)
	if fatalErr != nil {
		rep.State = proto.STATE_FAIL
		return rep, BackendError{Backend: BackendDistributed, Err: fatalErr}
	}
	return rep, nil
}

// submitNode assembles one node's task and runs it on the facility. The
// returned error is a submission failure; step failures come back in the
// Result.
func (s *distributed) submitNode(ctx context.Context, rs *runState, logger *log.Entry, key proto.NodeKey) (proto.Result, error) {
	spec, _ := s.graph.Spec(key)

	inputs, err := rs.assemble(key)
	if err != nil {
		return proto.Result{}, err
	}

	task := proto.Task{
		Id:      xid.New().String(),
		RunId:   s.runId,
		Key:     key,
		Call:    spec.Call,
		Args:    spec.Args,
		Inputs:  inputs,
		Timeout: spec.Timeout,
	}

	s.hook.BeforeNode(key, spec.Call, inputs, spec.Args)
	rs.setRunning(key)
	logger.WithFields(log.Fields{"node": key.String(), "taskId": task.Id}).Info("submitting node")

	res, err := s.client.RunTask(ctx, task)
	if err != nil {
		return proto.Result{}, err
	}
	// Trust the worker's state but never its key: results are stored under
	// the node we submitted.
	res.Key = key
	s.hook.AfterNode(res)
	return res, nil
}

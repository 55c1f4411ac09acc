// Copyright 2026, Met Office

package sched

import (
	"context"
	"sync"

	"github.com/MetOffice/pp-systems-framework/proto"
)

// pool executes ready nodes on a fixed-size pool of workers. A controller
// goroutine feeds ready nodes to runChan and consumes completion events from
// doneChan; as each node completes, its successors are re-evaluated and
// enqueued once all their predecessors are done. The pool size bounds
// concurrency; readiness is driven entirely by completion events, so the run
// cannot deadlock on an acyclic graph.
type pool struct {
	engine
	workers int
}

func (s *pool) Run(ctx context.Context) (Report, error) {
	rs, logger, runId := s.begin()
	logger.WithField("workers", s.workers).Info("parallel run started")
	defer logger.Info("parallel run done")

	total := s.graph.Len()
	if total == 0 {
		return report(runId, rs, false), nil
	}

	// Both channels hold the whole graph so neither the controller nor a
	// worker ever blocks on a send: every node produces exactly one
	// completion event and is dispatched at most once.
	runChan := make(chan proto.NodeKey, total)
	doneChan := make(chan proto.Result, total)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range runChan {
				var res proto.Result
				if ctx.Err() != nil {
					// Enqueued before the cancellation was observed; settled
					// without invoking the step.
					res = proto.Result{Key: key, State: proto.STATE_STOPPED}
				} else {
					res = s.runNode(ctx, rs, logger, key)
				}
				if err := rs.put(res); err != nil {
					logger.WithField("node", key.String()).Errorf("%s", err)
					continue
				}
				doneChan <- res
			}
		}()
	}

	waiting := map[proto.NodeKey]int{} // undone predecessor count per node
	for _, key := range s.graph.Nodes() {
		waiting[key] = len(s.graph.Predecessors(key))
	}

	cancelled := ctx.Err() != nil

	// settle records a result the controller decided without running the
	// node (blocked or stopped) and emits its completion event so the
	// node's successors are re-evaluated like any other completion.
	settle := func(res proto.Result) {
		if err := rs.put(res); err != nil {
			logger.WithField("node", res.Key.String()).Errorf("%s", err)
			return
		}
		doneChan <- res
	}

	for _, key := range s.graph.Roots() {
		if cancelled {
			settle(proto.Result{Key: key, State: proto.STATE_STOPPED})
			continue
		}
		runChan <- key
	}

	for done := 0; done < total; {
		var res proto.Result
		if cancelled {
			res = <-doneChan
		} else {
			select {
			case res = <-doneChan:
			case <-ctx.Done():
				cancelled = true
				logger.Warn("run cancelled - no new nodes will be dispatched")
				continue
			}
		}
		done++

		// A STOPPED result means the run context was cancelled while the node
		// was in flight; the select may never observe ctx.Done when the last
		// completion events are already queued.
		if res.State == proto.STATE_STOPPED && !cancelled {
			cancelled = true
			logger.Warn("run cancelled - no new nodes will be dispatched")
		}

		for _, next := range s.graph.Successors(res.Key) {
			waiting[next]--
			if waiting[next] > 0 {
				continue
			}
			// All predecessors are done; decide what happens to next.
			if failed := rs.failedPreds(next); len(failed) > 0 {
				b := blocked(next, failed)
				logger.WithField("node", next.String()).Warnf("node blocked: %s", b.Error)
				settle(b)
			} else if cancelled || rs.stoppedPreds(next) {
				settle(proto.Result{Key: next, State: proto.STATE_STOPPED})
			} else {
				runChan <- next
			}
		}
	}

	close(runChan)
	wg.Wait()
	return report(runId, rs, cancelled), nil
}

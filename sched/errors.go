// Copyright 2026, Met Office

package sched

import (
	"fmt"

	"github.com/MetOffice/pp-systems-framework/proto"
)

var _ error = NodeExecutionError{}

// NodeExecutionError wraps the failure of one node's step execution. It
// triggers the blocked-propagation policy for the node's descendants but
// never stops unrelated branches.
type NodeExecutionError struct {
	Key proto.NodeKey
	Err error
}

func (e NodeExecutionError) Error() string {
	return fmt.Sprintf("node %s failed: %s", e.Key, e.Err)
}

func (e NodeExecutionError) Unwrap() error { return e.Err }

var _ error = BackendError{}

// BackendError means a scheduling backend itself could not complete the run,
// e.g. a distributed submission failure. Fatal to the whole run.
type BackendError struct {
	Backend string
	Err     error
}

func (e BackendError) Error() string {
	return fmt.Sprintf("%s backend error: %s", e.Backend, e.Err)
}

func (e BackendError) Unwrap() error { return e.Err }

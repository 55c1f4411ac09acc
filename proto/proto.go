// Copyright 2026, Met Office

// Package proto provides the shared value types that describe a pipeline:
// node identities, per-node settings, dependency edges, node states, and
// results. These types cross the wire to remote workers, so they marshal
// cleanly to JSON.
package proto

import (
	"fmt"
	"strings"
	"time"

	"github.com/MetOffice/pp-systems-framework/step"
)

const (
	STATE_UNKNOWN byte = iota

	// Normal states, in order
	STATE_PENDING // waiting on predecessors
	STATE_READY   // all predecessors complete, not yet dispatched
	STATE_RUNNING // step executing
	STATE_COMPLETE

	// Terminal error states, no order
	STATE_FAIL    // step returned an error or panicked
	STATE_TIMEOUT // per-node timeout elapsed
	STATE_BLOCKED // a predecessor failed; never invoked
	STATE_STOPPED // run cancelled before the node was dispatched
)

var StateName = map[byte]string{
	STATE_UNKNOWN:  "UNKNOWN",
	STATE_PENDING:  "PENDING",
	STATE_READY:    "READY",
	STATE_RUNNING:  "RUNNING",
	STATE_COMPLETE: "COMPLETE",
	STATE_FAIL:     "FAIL",
	STATE_TIMEOUT:  "TIMEOUT",
	STATE_BLOCKED:  "BLOCKED",
	STATE_STOPPED:  "STOPPED",
}

var StateValue = map[string]byte{
	"UNKNOWN":  STATE_UNKNOWN,
	"PENDING":  STATE_PENDING,
	"READY":    STATE_READY,
	"RUNNING":  STATE_RUNNING,
	"COMPLETE": STATE_COMPLETE,
	"FAIL":     STATE_FAIL,
	"TIMEOUT":  STATE_TIMEOUT,
	"BLOCKED":  STATE_BLOCKED,
	"STOPPED":  STATE_STOPPED,
}

// Done reports whether state is terminal: the node has run to completion or
// will never run.
func Done(state byte) bool {
	switch state {
	case STATE_COMPLETE, STATE_FAIL, STATE_TIMEOUT, STATE_BLOCKED, STATE_STOPPED:
		return true
	}
	return false
}

// NodeKey identifies one unit of work in a pipeline: a processing step name
// plus the forecast lead time it operates on. NodeKey is a comparable value
// type, so it is usable directly as a map key; equality and ordering are
// field-wise.
type NodeKey struct {
	Step     string        `json:"step"`
	LeadTime time.Duration `json:"leadTime"`
}

// Less orders keys by step name, then lead time. Backends use this order to
// break ties so that runs are reproducible.
func (k NodeKey) Less(other NodeKey) bool {
	if k.Step != other.Step {
		return k.Step < other.Step
	}
	return k.LeadTime < other.LeadTime
}

// String returns the canonical "step@leadtime" form, e.g. "regrid@6h0m0s".
// This form keys the concurrent result map and appears in logs and errors.
func (k NodeKey) String() string {
	return k.Step + "@" + k.LeadTime.String()
}

// ParseNodeKey parses the canonical "step@leadtime" form produced by
// NodeKey.String. The lead time uses Go duration syntax ("6h", "90m").
func ParseNodeKey(s string) (NodeKey, error) {
	i := strings.LastIndex(s, "@")
	if i <= 0 || i == len(s)-1 {
		return NodeKey{}, fmt.Errorf("invalid node key %q: want step@leadtime", s)
	}
	lt, err := time.ParseDuration(s[i+1:])
	if err != nil {
		return NodeKey{}, fmt.Errorf("invalid lead time in node key %q: %s", s, err)
	}
	return NodeKey{Step: s[:i], LeadTime: lt}, nil
}

// NodeSpec is the per-node configuration from the pipeline description: how
// to obtain the node's step and the static arguments to run it with.
type NodeSpec struct {
	// Call is a symbolic reference into the step registry ("regrid.bilinear").
	// Resolution is lazy: an unknown reference is not an error until the node
	// is resolved for execution.
	Call string `json:"call" yaml:"call"`

	// Direct is a concrete step value. When set it takes precedence over
	// Call. Direct steps cannot be shipped to remote workers.
	Direct step.Step `json:"-" yaml:"-"`

	// Args are static keyword arguments, fixed when the pipeline was
	// described. They are never derived from predecessor outputs.
	Args map[string]interface{} `json:"args,omitempty" yaml:"args"`

	// Timeout bounds one execution of this node. Zero means no timeout.
	// A timed-out node is treated as failed for propagation purposes.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout"`
}

// Edge is a producer -> consumer dependency: the consumer receives the
// producer's output as a positional input. The order edges are declared in
// determines the consumer's input order.
type Edge struct {
	From NodeKey `json:"from"`
	To   NodeKey `json:"to"`
}

// Result is the terminal record for one node in one run: either the step's
// output value or a failure.
type Result struct {
	Key   NodeKey     `json:"key"`
	State byte        `json:"state"` // STATE_* const
	Value interface{} `json:"value,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Failed reports whether the node counts as a failure for propagation:
// failed, timed out, or blocked by a failed predecessor.
func (r Result) Failed() bool {
	return r.State == STATE_FAIL || r.State == STATE_TIMEOUT || r.State == STATE_BLOCKED
}

// Task is the wire form of one node execution submitted to a remote worker.
// Inputs are the assembled predecessor outputs; the worker resolves Call in
// its own registry.
type Task struct {
	Id      string                 `json:"id"` // unique per submission
	RunId   string                 `json:"runId"`
	Key     NodeKey                `json:"key"`
	Call    string                 `json:"call"`
	Args    map[string]interface{} `json:"args,omitempty"`
	Inputs  []interface{}          `json:"inputs"`
	Timeout time.Duration          `json:"timeout,omitempty"`
}

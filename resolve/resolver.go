// Copyright 2026, Met Office

// Package resolve turns a node's declared call reference and static
// arguments into a bound, invocable unit. Resolution is lazy and cached per
// node, so repeated runs over the same graph never re-resolve references.
package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/MetOffice/pp-systems-framework/proto"
	"github.com/MetOffice/pp-systems-framework/step"
)

// A BoundUnit pairs a node's concrete step with its fixed keyword arguments.
// It is immutable once constructed and safe to reuse across runs and share
// across workers.
type BoundUnit struct {
	Key     proto.NodeKey
	Ref     string                 // symbolic reference, "" if the spec used a direct step
	Args    map[string]interface{} // static keyword arguments, never derived from inputs
	Timeout time.Duration

	call step.Step
}

// Invoke runs the bound step with the assembled positional inputs.
func (u *BoundUnit) Invoke(ctx context.Context, inputs []interface{}) (interface{}, error) {
	return u.call.Run(ctx, inputs, u.Args)
}

// Bind pairs an already-resolved step with its arguments. Remote workers use
// it to bind per-task, where the engine-side per-node cache does not apply.
func Bind(key proto.NodeKey, ref string, call step.Step, args map[string]interface{}, timeout time.Duration) *BoundUnit {
	return &BoundUnit{Key: key, Ref: ref, Args: args, Timeout: timeout, call: call}
}

// A Resolver resolves node specs against one step registry. Safe for
// concurrent use.
type Resolver struct {
	registry *step.Registry

	mu    *sync.Mutex
	cache map[proto.NodeKey]*BoundUnit
}

func NewResolver(registry *step.Registry) *Resolver {
	return &Resolver{
		registry: registry,
		mu:       &sync.Mutex{},
		cache:    map[proto.NodeKey]*BoundUnit{},
	}
}

// Resolve returns the bound unit for key. A direct step in the spec is bound
// as-is; otherwise the symbolic reference is looked up in the registry. The
// first successful resolution is cached; later calls for the same key return
// the same unit.
func (r *Resolver) Resolve(key proto.NodeKey, spec proto.NodeSpec) (*BoundUnit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.cache[key]; ok {
		return u, nil
	}

	var call step.Step
	if spec.Direct != nil {
		call = spec.Direct
	} else {
		var err error
		call, err = r.registry.Resolve(spec.Call)
		if err != nil {
			return nil, err
		}
	}

	u := &BoundUnit{
		Key:     key,
		Ref:     spec.Call,
		Args:    spec.Args,
		Timeout: spec.Timeout,
		call:    call,
	}
	r.cache[key] = u
	return u, nil
}

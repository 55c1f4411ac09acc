// Copyright 2026, Met Office

package step

import (
	"context"
	"strings"
	"sync"
)

// A Namespace groups related registry entries under one path segment, like a
// module groups functions. Values must be Step, Factory, or nested Namespace.
type Namespace map[string]interface{}

// A Registry maps symbolic references to steps. References are dotted paths:
// "regrid.bilinear" names the "bilinear" entry inside the "regrid" namespace.
// The registry is the lookup scope for all symbolic resolution - it is
// constructed once per process and passed into the engine, never mutated
// globally.
type Registry struct {
	mu      *sync.RWMutex
	entries map[string]interface{}
}

func NewRegistry() *Registry {
	return &Registry{
		mu:      &sync.RWMutex{},
		entries: map[string]interface{}{},
	}
}

// Register adds an entry under ref. The value must be a Step, a Factory, or
// a Namespace. Registering the same ref twice is an error; steps are
// registered once at startup, not swapped at run time.
func (r *Registry) Register(ref string, v interface{}) error {
	if ref == "" {
		return ErrEmptyRef
	}
	if v == nil {
		return ErrNilStep
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[ref]; ok {
		return ErrAlreadyExists
	}
	r.entries[ref] = v
	return nil
}

// MustRegister is Register for package init blocks.
func (r *Registry) MustRegister(ref string, v interface{}) {
	if err := r.Register(ref, v); err != nil {
		panic("step: register " + ref + ": " + err.Error())
	}
}

// Resolve looks up ref and returns an invocable step. A ref matching a
// top-level entry exactly is used directly. Otherwise the ref is split on
// "." and walked: the first segment must name a top-level entry, and every
// following segment descends into a Namespace. The final target must be a
// Step or a Factory.
func (r *Registry) Resolve(ref string) (Step, error) {
	if ref == "" {
		return nil, ErrEmptyRef
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if v, ok := r.entries[ref]; ok {
		return asStep(ref, ref, v)
	}

	segments := strings.Split(ref, ".")
	v, ok := r.entries[segments[0]]
	if !ok {
		return nil, UnresolvableReferenceError{Ref: ref, Segment: segments[0], Reason: "not found"}
	}
	for _, seg := range segments[1:] {
		ns, ok := v.(Namespace)
		if !ok {
			return nil, UnresolvableReferenceError{Ref: ref, Segment: seg, Reason: "not found"}
		}
		v, ok = ns[seg]
		if !ok {
			return nil, UnresolvableReferenceError{Ref: ref, Segment: seg, Reason: "not found"}
		}
	}
	return asStep(ref, segments[len(segments)-1], v)
}

// asStep converts a registry entry to an invocable Step. Factories are
// deferred: the per-invocation instance is made inside the returned Step so
// that construction and call happen as one operation.
func asStep(ref, segment string, v interface{}) (Step, error) {
	switch t := v.(type) {
	case Step:
		return t, nil
	case Factory:
		return Func(func(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
			return t.Make().Run(ctx, inputs, args)
		}), nil
	default:
		return nil, UnresolvableReferenceError{Ref: ref, Segment: segment, Reason: "not invocable"}
	}
}

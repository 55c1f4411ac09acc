// Copyright 2026, Met Office

// Package step provides the processing-step interface and the registry used
// to resolve symbolic step references. To avoid an import cycle, this package
// must not depend on any other package in the framework because everything
// else depends on it.
package step

import (
	"context"
)

// A Step is the smallest, reusable building block of a pipeline that has
// meaning by itself. A step should, ideally, do one thing: regrid a field,
// apply a threshold, write an output file.
//
// The framework defines the Step interface, but steps are provided by an
// external repo (registered in the steps package). This is known as "BYOS":
// bring your own steps. A step must be able to accomplish its purpose only
// through this interface because the engine only uses this interface.
type Step interface {
	// Run executes the step. inputs are the outputs of the node's
	// predecessors, in the order the dependency edges were declared. args
	// are the node's static settings, fixed when the pipeline was described.
	// Run is expected to block; it must return promptly once ctx is done.
	//
	// The returned value is opaque to the engine and is passed, as-is, to
	// the node's successors.
	Run(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error)
}

// Func adapts a plain function to the Step interface. It is the common way
// to register stateless steps.
type Func func(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error)

func (f Func) Run(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
	return f(ctx, inputs, args)
}

// A Factory instantiates a fresh Step per invocation. Stateful step
// implementations register a Factory so that each node execution gets its
// own instance; the engine constructs and runs it as one operation.
type Factory interface {
	Make() Step
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func() Step

func (f FactoryFunc) Make() Step { return f() }

// Copyright 2026, Met Office

// Package steps populates the step registry used by the framework binaries.
// This package is intended to be overwritten with a custom steps package
// registering the processing steps that make sense for your domain - the
// engine only ever uses the step.Step interface. The "core" namespace below
// provides a few generic steps useful for smoke-testing pipelines.
package steps

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MetOffice/pp-systems-framework/step"
)

// Registry is referenced from the framework binaries. It is the lookup scope
// for every symbolic call reference in a pipeline description.
var Registry = step.NewRegistry()

func init() {
	Registry.MustRegister("core", step.Namespace{
		"constant": step.Func(constant),
		"concat":   step.Func(concat),
		"sleep":    step.Func(sleep),
	})
}

// constant ignores its inputs and returns args["value"].
func constant(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
	v, ok := args["value"]
	if !ok {
		return nil, fmt.Errorf("value not set in step args")
	}
	return v, nil
}

// concat joins its inputs with args["sep"] (default "_"). Non-string inputs
// are formatted with %v.
func concat(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
	sep := "_"
	if s, ok := args["sep"].(string); ok {
		sep = s
	}
	parts := make([]string, len(inputs))
	for i, in := range inputs {
		parts[i] = fmt.Sprintf("%v", in)
	}
	return strings.Join(parts, sep), nil
}

// sleep blocks for args["duration"] (Go duration syntax) and passes its
// inputs through unchanged. Useful for exercising timeouts and concurrency.
func sleep(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
	s, ok := args["duration"].(string)
	if !ok {
		return nil, fmt.Errorf("duration not set in step args")
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return nil, fmt.Errorf("invalid duration %q: %s", s, err)
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if len(inputs) == 1 {
		return inputs[0], nil
	}
	return inputs, nil
}

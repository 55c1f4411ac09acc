// Copyright 2026, Met Office

// Package mock provides hand-rolled mocks for tests.
package mock

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrStep = errors.New("forced error in step")
)

// Step is a mock processing step. RunFunc, if set, provides the behavior;
// otherwise Run returns ValueResp/RunErr. Invocations are counted and their
// inputs recorded, so tests can assert at-most-once execution and
// positional-input order.
type Step struct {
	RunFunc   func(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error)
	ValueResp interface{}
	RunErr    error
	// --
	calls  int
	inputs [][]interface{}
	*sync.Mutex
}

func NewStep() *Step {
	return &Step{Mutex: &sync.Mutex{}}
}

func (s *Step) Run(ctx context.Context, inputs []interface{}, args map[string]interface{}) (interface{}, error) {
	s.Lock()
	s.calls++
	s.inputs = append(s.inputs, inputs)
	s.Unlock()
	if s.RunFunc != nil {
		return s.RunFunc(ctx, inputs, args)
	}
	return s.ValueResp, s.RunErr
}

// Calls returns the number of times Run was invoked.
func (s *Step) Calls() int {
	s.Lock()
	defer s.Unlock()
	return s.calls
}

// Inputs returns the positional inputs of every invocation, in order.
func (s *Step) Inputs() [][]interface{} {
	s.Lock()
	defer s.Unlock()
	inputs := make([][]interface{}, len(s.inputs))
	copy(inputs, s.inputs)
	return inputs
}

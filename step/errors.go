// Copyright 2026, Met Office

package step

import (
	"errors"
	"fmt"
)

var (
	ErrNilStep       = errors.New("nil step")
	ErrEmptyRef      = errors.New("empty step reference")
	ErrAlreadyExists = errors.New("reference already registered")
)

var _ error = UnresolvableReferenceError{}

// UnresolvableReferenceError is returned when a symbolic step reference
// cannot be resolved to an invocable step: a path segment is missing from
// the registry, or the final target is a namespace rather than a step.
type UnresolvableReferenceError struct {
	Ref     string // the full reference, e.g. "regrid.bilinear"
	Segment string // the segment that failed to resolve
	Reason  string // "not found" or "not invocable"
}

func (e UnresolvableReferenceError) Error() string {
	return fmt.Sprintf("cannot resolve step reference %s: %s %s", e.Ref, e.Segment, e.Reason)
}

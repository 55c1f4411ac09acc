// Copyright 2026, Met Office

// Package retry retries transient transport operations. It is used for
// worker status calls, never for node execution: the engine surfaces node
// failures instead of retrying them.
package retry

import (
	"context"
	"time"
)

type TryFunc func() error
type LogFunc func(error)

// Do calls tryFunc up to tries times, sleeping between attempts, and returns
// the last error if every attempt fails. logFunc, if non-nil, observes each
// failed attempt. Do stops early when ctx is done.
func Do(ctx context.Context, tries int, sleep time.Duration, tryFunc TryFunc, logFunc LogFunc) error {
	var err error
	for i := 0; i < tries; i++ {
		if err = tryFunc(); err == nil {
			return nil
		}
		if logFunc != nil {
			logFunc(err)
		}
		if i == tries-1 {
			break
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return err
		}
	}
	return err
}

// Copyright 2026, Met Office

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	calls := 0
	logged := 0
	err := Do(context.Background(), 3, time.Millisecond,
		func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		},
		func(error) { logged++ },
	)
	if err != nil {
		t.Fatalf("Do: %s", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, expected 3", calls)
	}
	if logged != 2 {
		t.Errorf("logged %d failures, expected 2", logged)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	last := errors.New("still broken")
	calls := 0
	err := Do(context.Background(), 2, time.Millisecond,
		func() error {
			calls++
			if calls == 1 {
				return errors.New("first")
			}
			return last
		},
		nil,
	)
	if err != last {
		t.Errorf("err = %v, expected the last attempt's error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, expected 2", calls)
	}
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	fail := errors.New("transient")
	err := Do(ctx, 10, time.Minute,
		func() error {
			calls++
			cancel()
			return fail
		},
		nil,
	)
	if err != fail {
		t.Errorf("err = %v, expected the attempt's error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, expected 1 (cancelled during first sleep)", calls)
	}
}

// Copyright 2026, Met Office

package proto

import (
	"testing"
	"time"
)

func TestNodeKeyOrdering(t *testing.T) {
	a := NodeKey{Step: "regrid", LeadTime: 6 * time.Hour}
	b := NodeKey{Step: "regrid", LeadTime: 12 * time.Hour}
	c := NodeKey{Step: "threshold", LeadTime: 6 * time.Hour}

	if !a.Less(b) {
		t.Errorf("%s should order before %s", a, b)
	}
	if !a.Less(c) {
		t.Errorf("%s should order before %s", a, c)
	}
	if c.Less(a) {
		t.Errorf("%s should not order before %s", c, a)
	}
	if a.Less(a) {
		t.Errorf("%s should not order before itself", a)
	}
}

func TestNodeKeyString(t *testing.T) {
	k := NodeKey{Step: "regrid", LeadTime: 6 * time.Hour}
	expect := "regrid@6h0m0s"
	if k.String() != expect {
		t.Errorf("String = %s, expected %s", k.String(), expect)
	}
}

func TestParseNodeKeyRoundTrip(t *testing.T) {
	k := NodeKey{Step: "regrid", LeadTime: 90 * time.Minute}
	parsed, err := ParseNodeKey(k.String())
	if err != nil {
		t.Fatalf("ParseNodeKey(%s): %s", k.String(), err)
	}
	if parsed != k {
		t.Errorf("parsed = %v, expected %v", parsed, k)
	}
}

func TestParseNodeKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "regrid", "@6h", "regrid@", "regrid@sometime"} {
		if _, err := ParseNodeKey(s); err == nil {
			t.Errorf("ParseNodeKey(%q): expected an error, got none", s)
		}
	}
}

func TestResultFailed(t *testing.T) {
	k := NodeKey{Step: "a", LeadTime: time.Hour}
	failed := map[byte]bool{
		STATE_COMPLETE: false,
		STATE_STOPPED:  false,
		STATE_FAIL:     true,
		STATE_TIMEOUT:  true,
		STATE_BLOCKED:  true,
	}
	for state, expect := range failed {
		r := Result{Key: k, State: state}
		if r.Failed() != expect {
			t.Errorf("Result{State: %s}.Failed() = %t, expected %t",
				StateName[state], r.Failed(), expect)
		}
	}
}

func TestDone(t *testing.T) {
	for _, state := range []byte{STATE_COMPLETE, STATE_FAIL, STATE_TIMEOUT, STATE_BLOCKED, STATE_STOPPED} {
		if !Done(state) {
			t.Errorf("Done(%s) = false, expected true", StateName[state])
		}
	}
	for _, state := range []byte{STATE_UNKNOWN, STATE_PENDING, STATE_READY, STATE_RUNNING} {
		if Done(state) {
			t.Errorf("Done(%s) = true, expected false", StateName[state])
		}
	}
}

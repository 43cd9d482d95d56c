package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetryable(t *testing.T) {
	cases := []struct {
		c    Code
		want bool
	}{
		{ArbLost, true},
		{Timeout, true},
		{AddrNAK, false},
		{DataNAK, false},
		{Fault, false},
		{Busy, false},
		{OK, false},
	}
	for _, tc := range cases {
		if got := Retryable(tc.c); got != tc.want {
			t.Errorf("Retryable(%s) = %v, want %v", tc.c, got, tc.want)
		}
	}
}

func TestOf(t *testing.T) {
	if got := Of(nil); got != OK {
		t.Errorf("Of(nil) = %s, want ok", got)
	}
	if got := Of(DataNAK); got != DataNAK {
		t.Errorf("Of(DataNAK) = %s", got)
	}
	wrapped := &E{C: Timeout, Op: "probe", Err: errors.New("deadline")}
	if got := Of(wrapped); got != Timeout {
		t.Errorf("Of(wrapped) = %s, want timeout", got)
	}
	if got := Of(errors.New("weird")); got != Error {
		t.Errorf("Of(opaque) = %s, want error", got)
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("saturated")
	e := &E{C: Busy, Msg: "device has a request outstanding", Err: cause}
	if !errors.Is(e, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if e.Error() != "busy: device has a request outstanding" {
		t.Errorf("Error() = %q", e.Error())
	}
	var asE *E
	if wrapped := fmt.Errorf("configure: %w", e); !errors.As(wrapped, &asE) || asE.Code() != Busy {
		t.Error("code lost through a fmt wrap")
	}
}

package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK   Code = "ok"
	Busy Code = "busy"

	// Physical-layer transaction outcomes. The multiplexer surfaces these
	// to the issuing device handle verbatim; it never retries on its own.
	AddrNAK Code = "addr_nak" // no device acknowledged the address
	DataNAK Code = "data_nak" // device rejected a data byte
	ArbLost Code = "arb_lost" // lost bus arbitration mid-transaction
	Timeout Code = "timeout"
	Fault   Code = "bus_fault" // unrecoverable controller fault

	// Composition / control plane.
	InvalidParams Code = "invalid_params"
	Unsupported   Code = "unsupported"
	NotFound      Code = "not_found"

	Error Code = "error" // generic fallback
)

// Retryable reports whether a driver state machine may sensibly retry a
// transaction that failed with c. Address/data NAKs are deterministic and
// never retryable; arbitration loss and timeouts are transient.
func Retryable(c Code) bool {
	switch c {
	case ArbLost, Timeout:
		return true
	default:
		return false
	}
}

// E is an optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

package errcode

import "errors"

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK              Code = "ok"
	InvalidArgument Code = "invalid_argument"
	NotReady        Code = "not_ready"
	ConfigConflict  Code = "config_conflict"
	ResourceError   Code = "resource_error"
	Timeout         Code = "timeout"
	SequenceAbort   Code = "sequence_abort"

	UnknownBus Code = "unknown_bus"
	Busy       Code = "busy"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.X) match on the code.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Wrap attaches a code and operation to a cause. A nil cause yields nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// New builds an *E without a cause.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts the outermost Code from an error chain, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch x := e.(type) {
		case Code:
			return x
		case coder:
			return x.Code()
		}
	}
	return Error
}

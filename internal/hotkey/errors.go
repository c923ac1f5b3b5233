package hotkey

import (
	"errors"
	"fmt"
)

// ErrorKind classifies backend failures.
type ErrorKind int

const (
	// PlatformUnsupported means neither a direct-grab nor a broker protocol was detected.
	PlatformUnsupported ErrorKind = iota + 1
	// AlreadyInUse means another application or process holds the exact combination.
	AlreadyInUse
	// GrabFailed means the OS refused the grab for a reason other than a conflict.
	GrabFailed
	// BrokerUnavailable means the shortcut broker could not be reached.
	BrokerUnavailable
	// InvalidSpec means the key spec cannot be translated on this platform.
	InvalidSpec
)

func (k ErrorKind) String() string {
	switch k {
	case PlatformUnsupported:
		return "platform unsupported"
	case AlreadyInUse:
		return "already in use"
	case GrabFailed:
		return "grab failed"
	case BrokerUnavailable:
		return "broker unavailable"
	case InvalidSpec:
		return "invalid spec"
	default:
		return "unknown"
	}
}

// Sentinel errors for errors.Is. Any *Error of the same kind matches.
var (
	ErrPlatformUnsupported = &Error{Kind: PlatformUnsupported}
	ErrAlreadyInUse        = &Error{Kind: AlreadyInUse}
	ErrGrabFailed          = &Error{Kind: GrabFailed}
	ErrBrokerUnavailable   = &Error{Kind: BrokerUnavailable}
	ErrInvalidSpec         = &Error{Kind: InvalidSpec}
)

// Error is the failure type returned across the backend boundary.
type Error struct {
	Kind     ErrorKind
	Op       string // "register", "unregister", "translate", ...
	Shortcut string // human-readable combination, may be empty
	Msg      string // platform text, e.g. the X error description
	Err      error
}

func newError(kind ErrorKind, op, shortcut, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Shortcut: shortcut, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of err, or 0 if err is not an *Error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

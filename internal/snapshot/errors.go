package snapshot

import (
	"errors"
	"fmt"
)

// Kind classifies snapshot failures so the CLI can pick an exit status.
type Kind int

const (
	KindUnknown Kind = iota
	// KindPrecondition: bad input, nothing was touched.
	KindPrecondition
	// KindEnvironment: lock, writer or filesystem problems.
	KindEnvironment
	// KindVerification: the archive is missing, empty or fails its checksums.
	KindVerification
	// KindRestore: unpacking failed; the DataSet was rolled back.
	KindRestore
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindEnvironment:
		return "environment"
	case KindVerification:
		return "verification"
	case KindRestore:
		return "restore"
	default:
		return "unknown"
	}
}

// Error is returned by Manager operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}

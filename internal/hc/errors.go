package hc

import (
	"errors"
	"fmt"
)

// Kind classifies every failure the core can surface. Callers switch on it
// exhaustively to pick an exit status.
type Kind int

const (
	// KindExternal is a failure of the version-control service itself.
	KindExternal Kind = iota
	// KindUsage is a precondition the user has to fix: a missing flag, an
	// empty repository, a merge commit in the way.
	KindUsage
	// KindInterrupted is a clean abort before anything was written.
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindExternal:
		return "external"
	case KindUsage:
		return "usage"
	case KindInterrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is the error type returned across the hc package boundary.
type Error struct {
	Kind Kind
	Op   string // operation that failed, e.g. "git commit-tree"
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Usagef returns a KindUsage error with a formatted message.
func Usagef(format string, args ...any) error {
	return &Error{Kind: KindUsage, Err: fmt.Errorf(format, args...)}
}

// External wraps err as a KindExternal failure of op.
func External(op string, err error) error {
	return &Error{Kind: KindExternal, Op: op, Err: err}
}

// Interrupted wraps err (usually a context error) as a KindInterrupted failure.
func Interrupted(err error) error {
	return &Error{Kind: KindInterrupted, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
// Errors that were never classified count as external failures.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindExternal
}

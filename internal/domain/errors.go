package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the fatal errors a run can end with
type ErrorKind int

const (
	KindInvalidArgument ErrorKind = iota + 1
	KindConfigNotFound
	KindConfigInvalid
	KindInteractiveAbort
	KindStageFailed
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindConfigNotFound:
		return "config not found"
	case KindConfigInvalid:
		return "config invalid"
	case KindInteractiveAbort:
		return "aborted"
	case KindStageFailed:
		return "stage failed"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is; only the Kind is compared.
var (
	ErrInvalidArgument  = &Error{Kind: KindInvalidArgument}
	ErrConfigNotFound   = &Error{Kind: KindConfigNotFound}
	ErrConfigInvalid    = &Error{Kind: KindConfigInvalid}
	ErrInteractiveAbort = &Error{Kind: KindInteractiveAbort}
	ErrStageFailed      = &Error{Kind: KindStageFailed}
)

// Error is a classified orchestrator error.
// Stage and Code are only set for KindStageFailed.
type Error struct {
	Kind  ErrorKind
	Stage string
	Code  int
	Err   error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindStageFailed:
		if e.Err != nil {
			return fmt.Sprintf("stage %q failed with exit code %d: %v", e.Stage, e.Code, e.Err)
		}
		return fmt.Sprintf("stage %q failed with exit code %d", e.Stage, e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// InvalidArgument wraps err as an InvalidArgument error
func InvalidArgument(err error) error {
	return &Error{Kind: KindInvalidArgument, Err: err}
}

// ConfigNotFound wraps err as a ConfigNotFound error
func ConfigNotFound(err error) error {
	return &Error{Kind: KindConfigNotFound, Err: err}
}

// ConfigInvalid wraps err as a ConfigInvalid error
func ConfigInvalid(err error) error {
	return &Error{Kind: KindConfigInvalid, Err: err}
}

// InteractiveAbort returns the error for an operator-initiated quit
func InteractiveAbort() error {
	return &Error{Kind: KindInteractiveAbort}
}

// StageFailed reports a collaborator that exited non-zero or could not be started
func StageFailed(stage string, code int, err error) error {
	return &Error{Kind: KindStageFailed, Stage: stage, Code: code, Err: err}
}

// ExitCode maps an error returned by a run to the process exit status.
// A failed stage propagates its own code; every other error exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == KindStageFailed && e.Code != 0 {
		return e.Code
	}
	return 1
}

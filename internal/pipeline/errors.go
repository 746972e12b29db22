package pipeline

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is matched by every InputError.
var ErrInvalidInput = errors.New("invalid input")

// InputError stops a run before anything is written: an unreadable input
// directory, fewer than two revisions, or a revision without pages.
type InputError struct {
	Reason string
	Err    error
}

func (e *InputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Reason, e.Err)
	}
	return "invalid input: " + e.Reason
}

func (e *InputError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// MergeError reports the pair at which a run stopped. The revisions merged
// before it are still written.
type MergeError struct {
	Pair  int
	Left  string
	Right string
	Err   error
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("pair %d (%s -> %s): %v", e.Pair, e.Left, e.Right, e.Err)
}

func (e *MergeError) Unwrap() error { return e.Err }

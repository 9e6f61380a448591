package session

import (
	"errors"
	"fmt"
	"syscall"
)

// FatalError is an unrecoverable failure of the event loop. Op names the
// operation that failed.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return fmt.Sprintf("%s: %v (errno %d)", e.Op, e.Err, int(errno))
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

func fatal(op string, err error) error {
	return &FatalError{Op: op, Err: err}
}

package extract

import (
	"errors"
	"fmt"
)

// MethodError reports a failure inside a single extraction method.
type MethodError struct {
	Method string `json:"method"`
	Op     string `json:"operation"`
	Err    error  `json:"error"`
}

func (e *MethodError) Error() string {
	return fmt.Sprintf("%s extraction failed in %s: %v", e.Method, e.Op, e.Err)
}

func (e *MethodError) Unwrap() error {
	return e.Err
}

// ErrPanic marks a method that panicked instead of returning an error.
var ErrPanic = errors.New("extraction panicked")

func methodErr(method, op string, err error) error {
	return &MethodError{Method: method, Op: op, Err: err}
}

func panicError(r any) error {
	return fmt.Errorf("%w: %v", ErrPanic, r)
}

package store

import (
	"errors"
	"fmt"
)

// ErrStorage matches every failure returned by a Store.
var ErrStorage = errors.New("storage error")

// Error records the failed operation and its cause.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports ErrStorage for any store error.
func (e *Error) Is(target error) bool { return target == ErrStorage }

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return err
	}
	return &Error{Op: op, Err: err}
}

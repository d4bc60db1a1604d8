package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("already exists")
	ErrAuthRequired = errors.New("authentication required")
	ErrInternal     = errors.New("internal error")
)

// StoreError wraps a failed data-access call with a machine-readable code.
// The original cause stays reachable through errors.Is/errors.As.
type StoreError struct {
	Code string
	Op   string
	Err  error
}

func (e *StoreError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("store error [%s]: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("store error [%s] in %s: %v", e.Code, e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// WrapStore classifies err into the common store-error shape. Known sentinel
// causes keep their codes stable so callers can branch on them.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	code := "STORE"
	switch {
	case errors.Is(err, ErrNotFound):
		code = "NOT_FOUND"
	case errors.Is(err, ErrDuplicate):
		code = "DUPLICATE"
	case errors.Is(err, ErrAuthRequired):
		code = "AUTH_REQUIRED"
	}
	return &StoreError{Code: code, Op: op, Err: err}
}

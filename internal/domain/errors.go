package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a conditional write matched no rows because the
	// stored state no longer satisfied its precondition.
	ErrConflict = errors.New("conflict")
)

// ErrorKind classifies failures surfaced by the order engine. Callers pick a
// response (HTTP status, retry) from the kind, never from the message.
type ErrorKind string

const (
	KindCartNotFound       ErrorKind = "CartNotFound"
	KindNoEligibleItems    ErrorKind = "NoEligibleItems"
	KindProductNotFound    ErrorKind = "ProductNotFound"
	KindInvalidVoucher     ErrorKind = "InvalidVoucher"
	KindNoPurchasableItems ErrorKind = "NoPurchasableItems"
	KindOrderNotFound      ErrorKind = "OrderNotFound"
	KindIllegalTransition  ErrorKind = "IllegalTransition"
	KindMalformedCallback  ErrorKind = "MalformedCallback"
	KindStorageConflict    ErrorKind = "StorageConflict"
	KindStorageUnavailable ErrorKind = "StorageUnavailable"
	KindInvalidInput       ErrorKind = "InvalidInput"
)

// Error is the structured error returned by every order-engine operation.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind, so the package
// sentinels below match any error carrying that kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrCartNotFound       = &Error{Kind: KindCartNotFound}
	ErrNoEligibleItems    = &Error{Kind: KindNoEligibleItems}
	ErrProductNotFound    = &Error{Kind: KindProductNotFound}
	ErrInvalidVoucher     = &Error{Kind: KindInvalidVoucher}
	ErrNoPurchasableItems = &Error{Kind: KindNoPurchasableItems}
	ErrOrderNotFound      = &Error{Kind: KindOrderNotFound}
	ErrIllegalTransition  = &Error{Kind: KindIllegalTransition}
	ErrMalformedCallback  = &Error{Kind: KindMalformedCallback}
	ErrStorageConflict    = &Error{Kind: KindStorageConflict}
	ErrStorageUnavailable = &Error{Kind: KindStorageUnavailable}
	ErrInvalidInput       = &Error{Kind: KindInvalidInput}
)

// Errorf builds an *Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind around a lower-level cause.
func Wrap(kind ErrorKind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf extracts the kind of err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

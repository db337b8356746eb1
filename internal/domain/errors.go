package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable, machine-readable error category.
type ErrorKind string

const (
	KindLedgerInconsistency   ErrorKind = "LEDGER_INCONSISTENCY"
	KindInsufficientBalance   ErrorKind = "INSUFFICIENT_BALANCE"
	KindInvalidCursor         ErrorKind = "INVALID_CURSOR"
	KindChainCallFailed       ErrorKind = "CHAIN_CALL_FAILED"
	KindAmbiguousPriorAttempt ErrorKind = "AMBIGUOUS_PRIOR_ATTEMPT"
	KindLockNotAcquired       ErrorKind = "LOCK_NOT_ACQUIRED"
	KindNotFound              ErrorKind = "NOT_FOUND"
	KindInvalidArgument       ErrorKind = "INVALID_ARGUMENT"
	KindVersionConflict       ErrorKind = "VERSION_CONFLICT"
	KindInvalidState          ErrorKind = "INVALID_STATE"
	KindInternal              ErrorKind = "INTERNAL"
)

// Error is a domain error tagged with a kind.
// Two errors match under errors.Is when their kinds are equal.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target carries the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Code returns the stable code of the error kind.
func (e *Error) Code() string {
	return string(e.Kind)
}

// NewError creates a domain error of the given kind.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps cause into a domain error of the given kind.
func WrapError(kind ErrorKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf returns the kind of err, or KindInternal for non-domain errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// Ledger errors
	ErrLedgerInconsistency = &Error{Kind: KindLedgerInconsistency, Message: "ledger inconsistency"}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrInvalidCursor       = &Error{Kind: KindInvalidCursor, Message: "invalid cursor"}
	ErrAccountNotFound     = &Error{Kind: KindNotFound, Message: "account not found"}
	ErrInvalidAmount       = &Error{Kind: KindInvalidArgument, Message: "amount must be positive"}
	ErrInvalidAccountKey   = &Error{Kind: KindInvalidArgument, Message: "invalid account key"}

	// Settlement errors
	ErrChainCallFailed       = &Error{Kind: KindChainCallFailed, Message: "blockchain call failed"}
	ErrAmbiguousPriorAttempt = &Error{Kind: KindAmbiguousPriorAttempt, Message: "ambiguous prior submission attempt"}
	ErrLockNotAcquired       = &Error{Kind: KindLockNotAcquired, Message: "lock not acquired"}
	ErrTransactionNotFound   = &Error{Kind: KindNotFound, Message: "ton transaction not found"}
	ErrVersionConflict       = &Error{Kind: KindVersionConflict, Message: "concurrent modification"}
	ErrInvalidTransition     = &Error{Kind: KindInvalidState, Message: "invalid status transition"}
	ErrPayoutAddressNotFound = &Error{Kind: KindNotFound, Message: "payout address not found"}
	ErrInvalidAddress        = &Error{Kind: KindInvalidArgument, Message: "invalid address"}

	// Outbox errors
	ErrUnknownEventType = &Error{Kind: KindInvalidArgument, Message: "unknown event type"}
	ErrDuplicateType    = &Error{Kind: KindInvalidArgument, Message: "duplicate type registration"}
)

// ErrNotSubmitted marks a chain call that provably never handed its payload
// to the network. It is a plain sentinel so that kind matching cannot fake it.
var ErrNotSubmitted = errors.New("payload not submitted")

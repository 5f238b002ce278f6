package core

import (
	"errors"
	"fmt"
)

// TransferError is the recoverable failure kind every error reaching the
// "error" lifecycle event is normalized into. It pairs the underlying cause
// with the bookkeeping the error-recovery protocol needs: the emitted marker
// that prevents the same failure from being surfaced to listeners twice, and
// the throw-immediately flag that forces propagation to the batch caller even
// in parallel mode.
//
// The markers live on this wrapper, not on the wrapped cause, so the same
// underlying error value can safely appear in unrelated batches.
type TransferError struct {
	msg   string
	cause error

	// Code carries the low-level completion code from the multiplexing
	// layer for transport failures, zero otherwise.
	Code int

	// Stats holds the transfer statistics accumulated up to the failure,
	// when available.
	Stats *TransferStats

	emitted          bool
	throwImmediately bool
}

// NewTransferError builds a TransferError with an explanatory message and an
// optional underlying cause.
func NewTransferError(msg string, cause error) *TransferError {
	return &TransferError{msg: msg, cause: cause}
}

// WrapError normalizes err into a *TransferError. An err that already is, or
// wraps, a TransferError is returned as that instance so the emitted marker
// survives re-wrapping. A nil err returns nil.
func WrapError(err error) *TransferError {
	if err == nil {
		return nil
	}
	var terr *TransferError
	if errors.As(err, &terr) {
		return terr
	}
	return &TransferError{msg: err.Error(), cause: err}
}

// Error implements the error interface.
func (e *TransferError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s (code %d)", e.msg, e.Code)
	}
	return e.msg
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *TransferError) Unwrap() error { return e.cause }

// MarkEmitted records that this failure has been dispatched through the
// "error" lifecycle event.
func (e *TransferError) MarkEmitted() { e.emitted = true }

// Emitted reports whether this failure has already been dispatched through
// the "error" lifecycle event.
func (e *TransferError) Emitted() bool { return e.emitted }

// SetThrowImmediately flags the failure for propagation to the batch caller
// regardless of the batch mode.
func (e *TransferError) SetThrowImmediately(v bool) { e.throwImmediately = v }

// ThrowImmediately reports whether the failure is flagged for unconditional
// propagation.
func (e *TransferError) ThrowImmediately() bool { return e.throwImmediately }

// ThrowsImmediately reports whether err is, or wraps, a TransferError flagged
// for unconditional propagation.
func ThrowsImmediately(err error) bool {
	var terr *TransferError
	return errors.As(err, &terr) && terr.ThrowImmediately()
}

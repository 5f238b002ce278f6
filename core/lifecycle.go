package core

import "errors"

// Lifecycle coordination: the four Emit* functions below translate between
// listener failures and lifecycle events so that any failure is shown to
// "error" listeners exactly once per attempt, and so that a listener gets one
// authoritative chance to recover it.

// EmitBefore dispatches the "before" event for tx. A failure that has already
// been surfaced through the "error" event is returned as-is without a second
// emission; any other failure is routed through EmitError.
func EmitBefore(tx *Transaction) error {
	if err := tx.Request.Emitter().Emit(EventBefore, NewBeforeEvent(tx)); err != nil {
		var terr *TransferError
		if errors.As(err, &terr) && terr.Emitted() {
			return err
		}
		return EmitError(tx, err, nil)
	}
	return nil
}

// EmitHeaders dispatches the "headers" event for tx. Called by transports
// once response headers are parsed, before the body is consumed.
func EmitHeaders(tx *Transaction) error {
	return tx.Request.Emitter().Emit(EventHeaders, NewHeadersEvent(tx))
}

// EmitComplete records the effective URL on the response and dispatches the
// "complete" event. A failure raised by a "complete" listener is delegated to
// EmitError with the same stats.
func EmitComplete(tx *Transaction, stats *TransferStats) error {
	if tx.Response != nil {
		tx.Response.SetEffectiveURL(tx.Request.URL())
	}
	if err := tx.Request.Emitter().Emit(EventComplete, NewCompleteEvent(tx, stats)); err != nil {
		return EmitError(tx, err, stats)
	}
	return nil
}

// EmitError normalizes cause into a TransferError, marks it emitted and
// dispatches the "error" event. When a listener stops propagation the failure
// is swallowed and nil is returned; the listener is expected to have attached
// a substitute response. Otherwise the normalized failure is returned for the
// caller to propagate. A failure raised by an "error" listener itself is
// returned un-emitted.
func EmitError(tx *Transaction, cause error, stats *TransferStats) error {
	terr := WrapError(cause)
	if terr.Stats == nil {
		terr.Stats = stats
	}
	terr.MarkEmitted()

	ev := NewErrorEvent(tx, terr, stats)
	if err := tx.Request.Emitter().Emit(EventError, ev); err != nil {
		return err
	}
	if ev.PropagationStopped() {
		return nil
	}
	return terr
}

package core

// Well-known lifecycle event names. Per attempt they occur in this causal
// order: "before" precedes the transport attempt (or interception), "headers"
// fires once response headers are known, and exactly one of "complete" or
// "error" terminates the attempt.
const (
	EventBefore   = "before"
	EventHeaders  = "headers"
	EventComplete = "complete"
	EventError    = "error"
)

// Event is the payload handed to lifecycle listeners. All concrete events
// reference the transaction they concern and carry a propagation-stopped flag
// any listener may set to end the current emission early.
type Event interface {
	// Transaction returns the exchange this event concerns.
	Transaction() *Transaction

	// StopPropagation prevents any further listener from seeing this
	// emission.
	StopPropagation()

	// PropagationStopped reports whether a listener stopped this
	// emission.
	PropagationStopped() bool
}

type baseEvent struct {
	tx      *Transaction
	stopped bool
}

func (e *baseEvent) Transaction() *Transaction { return e.tx }
func (e *baseEvent) StopPropagation()          { e.stopped = true }
func (e *baseEvent) PropagationStopped() bool  { return e.stopped }

// BeforeEvent fires before an exchange reaches the transport. A listener may
// intercept the exchange by attaching a response to the transaction; the
// engine then treats it as complete without creating a transport handle.
type BeforeEvent struct {
	baseEvent
}

// NewBeforeEvent builds a BeforeEvent for tx.
func NewBeforeEvent(tx *Transaction) *BeforeEvent {
	return &BeforeEvent{baseEvent{tx: tx}}
}

// Intercept attaches resp to the transaction and stops propagation, skipping
// the transport for this exchange.
func (e *BeforeEvent) Intercept(resp Response) {
	e.tx.Response = resp
	e.StopPropagation()
}

// HeadersEvent fires once response headers are known, before the body has
// been fully read. Listeners that must react early (for example to abort a
// large download) hook this event.
type HeadersEvent struct {
	baseEvent
}

// NewHeadersEvent builds a HeadersEvent for tx.
func NewHeadersEvent(tx *Transaction) *HeadersEvent {
	return &HeadersEvent{baseEvent{tx: tx}}
}

// CompleteEvent terminates a successful attempt.
type CompleteEvent struct {
	baseEvent

	// Stats holds the transfer statistics for the attempt, nil when the
	// exchange was intercepted before reaching the transport.
	Stats *TransferStats
}

// NewCompleteEvent builds a CompleteEvent for tx.
func NewCompleteEvent(tx *Transaction, stats *TransferStats) *CompleteEvent {
	return &CompleteEvent{baseEvent: baseEvent{tx: tx}, Stats: stats}
}

// ErrorEvent terminates a failed attempt. A listener that can recover the
// exchange attaches a substitute response to the transaction and stops
// propagation, which suppresses the failure.
type ErrorEvent struct {
	baseEvent

	// Err is the normalized failure, already marked emitted.
	Err *TransferError

	// Stats holds the transfer statistics accumulated before the failure,
	// when available.
	Stats *TransferStats
}

// NewErrorEvent builds an ErrorEvent for tx.
func NewErrorEvent(tx *Transaction, terr *TransferError, stats *TransferStats) *ErrorEvent {
	return &ErrorEvent{baseEvent: baseEvent{tx: tx}, Err: terr, Stats: stats}
}

// Recover attaches a substitute response to the transaction and stops
// propagation, suppressing the failure for this attempt.
func (e *ErrorEvent) Recover(resp Response) {
	e.tx.Response = resp
	e.StopPropagation()
}

package core

import (
	"io"
	"net/http"
	"time"
)

// TransportHandle is the per-exchange I/O handle a transport binds to exactly
// one transaction while the exchange is in flight. Handles are created by a
// HandleFactory and closed (or recycled through the factory) when the
// exchange finishes or is retried.
type TransportHandle interface {
	// ID identifies the handle in diagnostics and batch bookkeeping.
	ID() string

	// Close releases transport resources held by the handle. Closing an
	// already closed handle is a no-op.
	Close() error
}

// Completion is one finished exchange reported by a MultiHandle. Err is nil
// for an OK completion; a non-nil Err is a transport-level failure carrying
// the low-level diagnostic.
type Completion struct {
	Handle TransportHandle
	Err    error
	Stats  *TransferStats
}

// MultiHandle drives many transport handles concurrently. The engine checks
// one out of the pool per batch, feeds handles into it and runs the
// poll/drain cycle against it. At most one batch owns a given MultiHandle at
// a time.
type MultiHandle interface {
	// Add registers a transport handle and starts driving its exchange.
	Add(h TransportHandle) error

	// Remove detaches a transport handle, cancelling its exchange if it
	// is still in flight. No-op for handles not currently attached.
	Remove(h TransportHandle) error

	// Perform advances execution without blocking and reports how many
	// exchanges are still in flight.
	Perform() (running int, err error)

	// Wait blocks until at least one exchange makes progress or the
	// timeout elapses, reporting how many became ready. A zero return
	// with nil error is a timed-out wake.
	Wait(timeout time.Duration) (ready int, err error)

	// Completions drains and returns the finished exchanges accumulated
	// since the previous call.
	Completions() []Completion

	// Close cancels any in-flight exchanges and releases the handle's
	// resources. The handle must not be reused afterwards.
	Close() error
}

// HandleFactory builds transport handles for transactions. Swappable via
// engine configuration to support alternate transports or test doubles.
type HandleFactory interface {
	// Create builds a handle for tx. existing, when non-nil, is the
	// handle of a failed attempt being retried; the factory owns
	// disposing of it.
	Create(tx *Transaction, messages MessageFactory, existing TransportHandle) (TransportHandle, error)
}

// MessageFactory supplies the means to turn transport bytes into a Response.
// Opaque to the engine; passed through to the transport.
type MessageFactory interface {
	NewResponse(statusCode int, header http.Header, body io.ReadCloser) Response
}

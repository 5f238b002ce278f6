package core

import (
	"io"
	"net/http"

	"github.com/google/uuid"
)

// Request is the read side of one HTTP exchange as the engine sees it. URL
// parsing, reference resolution and header semantics are the caller's
// concern; the engine only needs an already-resolved absolute URL, the raw
// header collection, an optional body stream and the request-scoped event
// emitter.
//
// A body that also implements io.Seeker is considered rewindable, which makes
// the exchange eligible for the engine's silent retry path (see package
// engine).
type Request interface {
	// Emitter returns the event emitter owned by this request. Every
	// lifecycle event for the exchange is dispatched through it.
	Emitter() *Emitter

	// Method returns the HTTP method verb.
	Method() string

	// URL returns the resolved absolute URL of the request.
	URL() string

	// Header returns the mutable header collection.
	Header() http.Header

	// Body returns the request body stream, or nil when the request has
	// no body.
	Body() io.Reader
}

// Response is the engine-facing view of an HTTP response. Concrete
// implementations live outside this package (see package message).
type Response interface {
	// StatusCode returns the HTTP status code.
	StatusCode() int

	// Header returns the response header collection.
	Header() http.Header

	// Body returns the response body stream. The caller owns closing it.
	Body() io.ReadCloser

	// EffectiveURL returns the URL that ultimately produced this
	// response. Set by the lifecycle coordinator when the exchange
	// completes.
	EffectiveURL() string

	// SetEffectiveURL records the URL that produced this response.
	SetEffectiveURL(url string)
}

// Transaction tracks one logical request/response exchange end-to-end. The
// caller owns the transaction for its whole lifetime; the engine only holds a
// working reference while the exchange is in flight.
//
// Response starts out nil and is populated either by a "before" listener
// (interception, which skips the transport entirely) or by the transport when
// the exchange finishes. Stats is attached by the engine on completion.
type Transaction struct {
	// ID correlates the exchange across log entries and diagnostics.
	ID string

	// Request describes the exchange. Must be non-nil.
	Request Request

	// Response is nil until a listener or the transport sets it.
	Response Response

	// Stats holds transfer statistics for the most recent attempt.
	Stats *TransferStats
}

// NewTransaction wraps a request into a fresh transaction with a generated ID.
func NewTransaction(req Request) *Transaction {
	return &Transaction{ID: NewID(), Request: req}
}

// NewID generates a unique identifier used for transactions and transport
// handles.
func NewID() string { return uuid.NewString() }

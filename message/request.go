package message

import (
	"io"
	"net/http"

	"github.com/hupe1980/httpflow/core"
)

// RequestOptions holds overrides passed to NewRequest.
type RequestOptions struct {
	// Header seeds the request header collection.
	Header http.Header
	// Body supplies the request body. Pass a *bytes.Reader or
	// *strings.Reader to keep the exchange eligible for silent retries.
	Body io.Reader
}

// Request is the default core.Request implementation: an HTTP method, an
// already-resolved absolute URL, a header collection, an optional body and
// the request-scoped event emitter.
type Request struct {
	method  string
	url     string
	header  http.Header
	body    io.Reader
	emitter *core.Emitter
}

// NewRequest builds a request for an already-resolved absolute URL.
func NewRequest(method, url string, optFns ...func(o *RequestOptions)) *Request {
	opts := RequestOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	header := opts.Header
	if header == nil {
		header = http.Header{}
	}

	return &Request{
		method:  method,
		url:     url,
		header:  header,
		body:    opts.Body,
		emitter: core.NewEmitter(),
	}
}

// Emitter returns the event emitter owned by this request.
func (r *Request) Emitter() *core.Emitter { return r.emitter }

// Method returns the HTTP method verb.
func (r *Request) Method() string { return r.method }

// URL returns the resolved absolute URL.
func (r *Request) URL() string { return r.url }

// Header returns the mutable header collection.
func (r *Request) Header() http.Header { return r.header }

// Body returns the request body, or nil when the request has none.
func (r *Request) Body() io.Reader { return r.body }

// SetBody replaces the request body. Intended for listeners that rewrite the
// request before it reaches the transport.
func (r *Request) SetBody(body io.Reader) { r.body = body }

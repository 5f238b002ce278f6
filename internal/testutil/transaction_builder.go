package testutil

import (
	"io"
	"net/http"
	"strings"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/message"
)

// unseekableReader hides the Seeker interface of the wrapped reader so tests
// can exercise the non-retryable body path.
type unseekableReader struct {
	r io.Reader
}

func (u *unseekableReader) Read(p []byte) (int, error) { return u.r.Read(p) }

// UnseekableBody wraps s into a reader that deliberately does not implement
// io.Seeker.
func UnseekableBody(s string) io.Reader {
	return &unseekableReader{r: strings.NewReader(s)}
}

type listenerEntry struct {
	name     string
	listener core.Listener
	priority int
}

// TransactionBuilder provides a fluent helper for constructing transactions
// in tests.
// Example:
//
//	tx := NewTransactionBuilder().Method("POST").URL("http://example.test/x").BodyString("payload").Build()
//
// Chain only the parts you need; sensible defaults are applied.
type TransactionBuilder struct {
	method    string
	url       string
	body      io.Reader
	header    http.Header
	listeners []listenerEntry
}

// NewTransactionBuilder creates a builder defaulting to a GET of
// http://example.test/.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{method: http.MethodGet, url: "http://example.test/"}
}

// Method sets the HTTP method (chainable).
func (b *TransactionBuilder) Method(m string) *TransactionBuilder { b.method = m; return b }

// URL sets the resolved absolute URL (chainable).
func (b *TransactionBuilder) URL(u string) *TransactionBuilder { b.url = u; return b }

// Body sets an arbitrary request body (chainable).
func (b *TransactionBuilder) Body(r io.Reader) *TransactionBuilder { b.body = r; return b }

// BodyString sets a seekable string body (chainable).
func (b *TransactionBuilder) BodyString(s string) *TransactionBuilder {
	b.body = strings.NewReader(s)
	return b
}

// UnseekableBodyString sets a body that cannot be rewound (chainable).
func (b *TransactionBuilder) UnseekableBodyString(s string) *TransactionBuilder {
	b.body = UnseekableBody(s)
	return b
}

// Header adds a header value (chainable).
func (b *TransactionBuilder) Header(key, value string) *TransactionBuilder {
	if b.header == nil {
		b.header = http.Header{}
	}
	b.header.Add(key, value)
	return b
}

// On registers a listener for the named lifecycle event at priority 0
// (chainable).
func (b *TransactionBuilder) On(name string, l core.Listener) *TransactionBuilder {
	return b.OnPriority(name, l, 0)
}

// OnPriority registers a listener for the named lifecycle event at an
// explicit priority (chainable).
func (b *TransactionBuilder) OnPriority(name string, l core.Listener, priority int) *TransactionBuilder {
	b.listeners = append(b.listeners, listenerEntry{name: name, listener: l, priority: priority})
	return b
}

// Build assembles the transaction.
func (b *TransactionBuilder) Build() *core.Transaction {
	req := message.NewRequest(b.method, b.url, func(o *message.RequestOptions) {
		o.Header = b.header
		o.Body = b.body
	})
	for _, entry := range b.listeners {
		req.Emitter().On(entry.name, entry.listener, entry.priority)
	}
	return core.NewTransaction(req)
}

package transport

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/logging"
)

// Options holds overrides passed to NewFactory.
type Options struct {
	// Client is the underlying HTTP client. Redirect following is
	// disabled on the default client; redirect semantics belong to
	// listeners, not to the transport.
	Client *http.Client

	// Logger receives transport diagnostics.
	Logger logging.Logger
}

// Factory builds net/http backed transport handles. It implements
// core.HandleFactory.
type Factory struct {
	client *http.Client
	logger logging.Logger
}

// NewFactory creates a handle factory with optional overrides.
func NewFactory(optFns ...func(o *Options)) *Factory {
	opts := Options{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Factory{client: opts.Client, logger: opts.Logger}
}

// Create builds a handle for tx. When existing is non-nil the exchange is a
// retry: the old handle is disposed of and the new one carries an incremented
// attempt counter.
func (f *Factory) Create(tx *core.Transaction, messages core.MessageFactory, existing core.TransportHandle) (core.TransportHandle, error) {
	if tx == nil || tx.Request == nil {
		return nil, errors.New("transport: cannot create a handle without a request")
	}
	if messages == nil {
		return nil, errors.New("transport: cannot create a handle without a message factory")
	}

	attempt := 1
	if existing != nil {
		if prev, ok := existing.(*Handle); ok {
			attempt = prev.attempt + 1
		}
		_ = existing.Close()
	}

	h := &Handle{
		id:       core.NewID(),
		tx:       tx,
		messages: messages,
		client:   f.client,
		logger:   f.logger,
		attempt:  attempt,
	}

	f.logger.Debug("created transport handle", "handle_id", h.id, "transaction_id", tx.ID, "attempt", attempt)

	return h, nil
}

// Handle is one in-flight exchange bound to exactly one transaction. It
// implements core.TransportHandle.
type Handle struct {
	id       string
	tx       *core.Transaction
	messages core.MessageFactory
	client   *http.Client
	logger   logging.Logger
	attempt  int

	cancel    context.CancelFunc
	closeOnce sync.Once
}

// ID identifies the handle in diagnostics and batch bookkeeping.
func (h *Handle) ID() string { return h.id }

// Transaction returns the exchange this handle drives.
func (h *Handle) Transaction() *core.Transaction { return h.tx }

// Attempt returns the 1-based attempt number, incremented on retries.
func (h *Handle) Attempt() int { return h.attempt }

// Close cancels the exchange if it is still in flight. Safe to call more
// than once.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		if h.cancel != nil {
			h.cancel()
		}
	})
	return nil
}

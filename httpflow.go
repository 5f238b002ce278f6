// Package httpflow provides a high-level façade over the concurrent transfer
// engine and its collaborators (messages, transport, logging) enabling
// concise HTTP client usage. Most applications interact with this package by:
//  1. Creating a Client via New() (optionally overriding the transport,
//     message factory or logger)
//  2. Building transactions (directly or through the Get/Head/Post helpers)
//  3. Driving them with Do (single exchange) or DoAll (bounded-concurrency
//     batches)
//
// The façade delegates all transfer mechanics to engine.Engine while keeping
// setup and usage ergonomics concise. URLs are consumed as already-resolved
// absolute references; redirect, auth and caching semantics belong to
// listeners registered on each request's emitter, not to this package.
package httpflow

import (
	"context"
	"io"
	"iter"
	"net/http"
	"time"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/engine"
	"github.com/hupe1980/httpflow/logging"
	"github.com/hupe1980/httpflow/message"
)

// Options configures the Client instance.
type Options struct {
	// HandleFactory overrides the transport backend.
	HandleFactory core.HandleFactory

	// MessageFactory overrides how transport bytes become responses.
	MessageFactory core.MessageFactory

	// SelectTimeout bounds the engine's readiness wait.
	SelectTimeout time.Duration

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// Client is the high-level façade aggregating the transfer engine and the
// default message layer.
type Client struct {
	opts   Options
	engine *engine.Engine
}

// New creates a new Client with optional overrides. Any unset collaborator is
// initialized with its default implementation.
func New(optFns ...func(o *Options)) (*Client, error) {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	eng, err := engine.New(func(o *engine.Options) {
		o.HandleFactory = opts.HandleFactory
		o.MessageFactory = opts.MessageFactory
		o.SelectTimeout = opts.SelectTimeout
		o.Logger = opts.Logger
	})
	if err != nil {
		return nil, err
	}

	return &Client{opts: opts, engine: eng}, nil
}

// Do drives a single transaction to completion and returns its response.
func (c *Client) Do(ctx context.Context, tx *core.Transaction) (core.Response, error) {
	return c.engine.Send(ctx, tx)
}

// DoAll drives a transaction sequence with at most parallelism exchanges in
// flight. Failures are reported per exchange through "error" listeners; see
// engine.Engine.SendAll for the full contract.
func (c *Client) DoAll(ctx context.Context, txs iter.Seq[*core.Transaction], parallelism int) error {
	return c.engine.SendAll(ctx, txs, parallelism)
}

// Get performs a GET against an already-resolved absolute URL.
func (c *Client) Get(ctx context.Context, url string) (core.Response, error) {
	return c.Do(ctx, core.NewTransaction(message.NewRequest(http.MethodGet, url)))
}

// Head performs a HEAD against an already-resolved absolute URL.
func (c *Client) Head(ctx context.Context, url string) (core.Response, error) {
	return c.Do(ctx, core.NewTransaction(message.NewRequest(http.MethodHead, url)))
}

// Post performs a POST with the given body against an already-resolved
// absolute URL. Pass a seekable body (for example *bytes.Reader) to keep the
// exchange eligible for the engine's silent retry path.
func (c *Client) Post(ctx context.Context, url string, body io.Reader) (core.Response, error) {
	req := message.NewRequest(http.MethodPost, url, func(o *message.RequestOptions) {
		o.Body = body
	})
	return c.Do(ctx, core.NewTransaction(req))
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/internal/util"
	"github.com/hupe1980/httpflow/logging"
	"github.com/hupe1980/httpflow/message"
	"github.com/hupe1980/httpflow/transport"
)

const (
	// DefaultParallelism is used by SendAll when no explicit concurrency
	// ceiling is given.
	DefaultParallelism = 25

	// DefaultSelectTimeout bounds the readiness wait of the drain loop.
	DefaultSelectTimeout = time.Second

	// SelectTimeoutEnv overrides the select timeout with a fractional
	// seconds value.
	SelectTimeoutEnv = "HTTPFLOW_SELECT_TIMEOUT"

	// waitBackoff is slept after a readiness wait wakes with nothing
	// ready, preventing a busy spin against a quiet handle.
	waitBackoff = 250 * time.Microsecond
)

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// HandleFactory builds per-exchange transport handles. Defaults to
	// the net/http backed transport.
	HandleFactory core.HandleFactory

	// MessageFactory turns transport bytes into responses. Defaults to
	// the message package factory.
	MessageFactory core.MessageFactory

	// SelectTimeout bounds the readiness wait of the drain loop. Zero
	// picks the default (or the HTTPFLOW_SELECT_TIMEOUT override);
	// negative values are a configuration error.
	SelectTimeout time.Duration

	// NewMultiHandle builds multiplexing handles for the pool.
	NewMultiHandle func() core.MultiHandle

	// Pool shares a multiplexing handle pool between engines. When nil
	// each engine owns a private pool.
	Pool *HandlePool

	// Logger receives engine diagnostics.
	Logger logging.Logger
}

// Engine drives HTTP exchanges to completion over pooled multiplexing
// handles. Construct with New; the zero value is not usable.
//
// Send and SendAll are safe to call from separate goroutines: each call runs
// its own batch, and only the handle pool is shared between them.
type Engine struct {
	factory       core.HandleFactory
	messages      core.MessageFactory
	pool          *HandlePool
	selectTimeout time.Duration
	logger        logging.Logger
}

// New constructs an Engine with optional overrides. Invalid configuration is
// reported here, never deferred to transfer time.
func New(optFns ...func(o *Options)) (*Engine, error) {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SelectTimeout < 0 {
		return nil, errors.New("engine: select timeout must be positive")
	}
	if opts.SelectTimeout == 0 {
		d, err := util.DurationFromEnv(SelectTimeoutEnv, DefaultSelectTimeout)
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		opts.SelectTimeout = d
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.HandleFactory == nil {
		opts.HandleFactory = transport.NewFactory(func(o *transport.Options) {
			o.Logger = opts.Logger
		})
	}
	if opts.MessageFactory == nil {
		opts.MessageFactory = message.NewFactory()
	}
	if opts.NewMultiHandle == nil {
		opts.NewMultiHandle = func() core.MultiHandle {
			return transport.NewMultiHandle()
		}
	}

	pool := opts.Pool
	if pool == nil {
		pool = NewHandlePool(opts.NewMultiHandle, func(o *PoolOptions) {
			o.Logger = opts.Logger
		})
	}

	return &Engine{
		factory:       opts.HandleFactory,
		messages:      opts.MessageFactory,
		pool:          pool,
		selectTimeout: opts.SelectTimeout,
		logger:        opts.Logger,
	}, nil
}

// Send drives a single exchange to completion and returns its response. Any
// failure not recovered by an "error" listener is returned to the caller.
func (e *Engine) Send(ctx context.Context, tx *core.Transaction) (core.Response, error) {
	seq := func(yield func(*core.Transaction) bool) { yield(tx) }

	b := newBatchContext(seq, 1, true)
	if err := e.transfer(ctx, b); err != nil {
		return nil, err
	}
	if tx.Response == nil {
		return nil, core.NewTransferError("no response was attached to the transaction", nil)
	}
	return tx.Response, nil
}

// SendAll drives the transaction sequence to completion with at most
// parallelism exchanges in flight. The sequence is consumed lazily as slots
// free up, so it may be streamed or unbounded. parallelism <= 0 picks
// DefaultParallelism.
//
// Unrecovered failures are reported per exchange through the "error" event
// and do not abort sibling exchanges; SendAll returns an error only for
// failures flagged for immediate propagation or for fatal engine faults.
func (e *Engine) SendAll(ctx context.Context, txs iter.Seq[*core.Transaction], parallelism int) error {
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	return e.transfer(ctx, newBatchContext(txs, parallelism, false))
}

// transfer runs the poll/drain loop for one batch. On a fatal or escalated
// failure every remaining binding is drained before the multiplexing handle
// goes back to the pool.
func (e *Engine) transfer(ctx context.Context, b *batchContext) (err error) {
	multi := e.pool.Checkout()
	defer func() {
		if err != nil {
			e.abort(b, multi)
		}
		e.pool.Release(multi)
	}()
	defer b.stop()

	if err = e.feed(b, multi); err != nil {
		return err
	}

	for b.isActive() {
		if cerr := ctx.Err(); cerr != nil {
			terr := core.WrapError(cerr)
			terr.SetThrowImmediately(true)
			err = terr
			return err
		}

		if _, perr := multi.Perform(); perr != nil {
			err = fmt.Errorf("engine: multiplexing handle failure: %w", perr)
			return err
		}

		completions := multi.Completions()
		for _, c := range completions {
			if err = e.handleCompletion(b, multi, c); err != nil {
				return err
			}
		}

		if !b.isActive() {
			break
		}

		if len(completions) == 0 {
			ready, werr := multi.Wait(e.selectTimeout)
			if werr != nil {
				err = fmt.Errorf("engine: readiness wait failure: %w", werr)
				return err
			}
			if ready == 0 {
				time.Sleep(waitBackoff)
			}
		}
	}

	return nil
}

// feed admits pending transactions until the concurrency window is full or
// the sequence is exhausted. Re-entrant calls during an ongoing admission are
// no-ops.
func (e *Engine) feed(b *batchContext, multi core.MultiHandle) error {
	if b.feeding {
		return nil
	}
	b.feeding = true
	defer func() { b.feeding = false }()

	for b.activeCount() < b.parallelism {
		tx, ok := b.nextPending()
		if !ok {
			return nil
		}
		if err := e.admit(b, multi, tx); err != nil {
			return err
		}
	}
	return nil
}

// admit runs one transaction through the "before" event and, unless a
// listener intercepted it, binds a fresh transport handle for it. Failures
// surfacing from the lifecycle are routed to the batch's escalation policy.
func (e *Engine) admit(b *batchContext, multi core.MultiHandle, tx *core.Transaction) error {
	if err := core.EmitBefore(tx); err != nil {
		return e.escalate(b, err)
	}

	if tx.Response != nil {
		// Intercepted: complete without ever reaching the transport.
		e.logger.Debug("exchange intercepted before transport", "transaction_id", tx.ID, "url", tx.Request.URL())
		return nil
	}

	h, err := e.factory.Create(tx, e.messages, nil)
	if err != nil {
		if eerr := core.EmitError(tx, err, nil); eerr != nil {
			return e.escalate(b, eerr)
		}
		return nil
	}

	b.add(tx, h)
	if err := multi.Add(h); err != nil {
		b.remove(tx)
		_ = h.Close()
		return fmt.Errorf("engine: failed to register handle: %w", err)
	}

	e.logger.Debug("exchange admitted", "transaction_id", tx.ID, "handle_id", h.ID(), "active", b.activeCount())
	return nil
}

// handleCompletion resolves one completion back to its transaction,
// classifies the outcome and keeps the concurrency window full.
func (e *Engine) handleCompletion(b *batchContext, multi core.MultiHandle, c core.Completion) error {
	tx, err := b.find(c.Handle)
	if err != nil {
		return err
	}

	info := b.remove(tx)
	_ = multi.Remove(c.Handle)
	tx.Stats = c.Stats

	o, rewindErr := classify(c, tx)

	if o == outcomeRetryableGap {
		// The one automatic-retry path: restart the exchange from its
		// rewound body with a fresh handle, emitting no events for the
		// failed attempt.
		e.logger.Debug("retrying exchange after dropped transfer", "transaction_id", tx.ID, "url", tx.Request.URL())
		return e.retry(b, multi, tx, c.Handle)
	}

	_ = c.Handle.Close()

	switch o {
	case outcomeSuccess:
		e.logger.Debug("exchange completed", "transaction_id", tx.ID, "status", tx.Response.StatusCode(), "duration", info.Duration)
		if cerr := core.EmitComplete(tx, c.Stats); cerr != nil {
			if esc := e.escalate(b, cerr); esc != nil {
				return esc
			}
		}

	case outcomeTransportFailure:
		terr := core.WrapError(c.Err)
		if terr.Code == 0 && c.Stats != nil {
			terr.Code = c.Stats.Code
		}
		e.logger.Debug("exchange failed in transport", "transaction_id", tx.ID, "error", terr.Error(), "duration", info.Duration)
		if eerr := core.EmitError(tx, terr, c.Stats); eerr != nil {
			if esc := e.escalate(b, eerr); esc != nil {
				return esc
			}
		}

	case outcomeMissingBody:
		diag := core.NewTransferError("no response was received without a request body to resend; the transport may be saturated", nil)
		if eerr := core.EmitError(tx, diag, c.Stats); eerr != nil {
			if esc := e.escalate(b, eerr); esc != nil {
				return esc
			}
		}

	case outcomeUnrewindableBody:
		msg := "no response was received and the request body is not seekable, so the exchange cannot be retried"
		if eerr := core.EmitError(tx, core.NewTransferError(msg, rewindErr), c.Stats); eerr != nil {
			if esc := e.escalate(b, eerr); esc != nil {
				return esc
			}
		}
	}

	return e.feed(b, multi)
}

// retry re-admits tx with a fresh transport handle built from the disposed
// previous one.
func (e *Engine) retry(b *batchContext, multi core.MultiHandle, tx *core.Transaction, previous core.TransportHandle) error {
	h, err := e.factory.Create(tx, e.messages, previous)
	if err != nil {
		if eerr := core.EmitError(tx, err, tx.Stats); eerr != nil {
			return e.escalate(b, eerr)
		}
		return e.feed(b, multi)
	}

	b.add(tx, h)
	if err := multi.Add(h); err != nil {
		b.remove(tx)
		_ = h.Close()
		return fmt.Errorf("engine: failed to re-register handle: %w", err)
	}
	return nil
}

// escalate decides whether a failure that survived the "error" event path
// aborts the batch. In must-propagate mode, or for failures flagged to throw
// immediately, the error is returned to the batch caller; otherwise the
// failure has been fully reported per exchange and the batch continues.
func (e *Engine) escalate(b *batchContext, err error) error {
	if err == nil {
		return nil
	}
	if b.throwsExceptions() || core.ThrowsImmediately(err) {
		return err
	}
	e.logger.Debug("failure reported via error event; batch continues", "error", err.Error())
	return nil
}

// abort drains every remaining binding after a fatal failure so the
// multiplexing handle returns to the pool clean.
func (e *Engine) abort(b *batchContext, multi core.MultiHandle) {
	for _, h := range b.removeAll() {
		_ = multi.Remove(h)
		_ = h.Close()
	}
}

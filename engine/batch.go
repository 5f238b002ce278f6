package engine

import (
	"errors"
	"iter"
	"time"

	"github.com/hupe1980/httpflow/core"
)

// ErrInconsistentState reports a completed transport handle that does not map
// back to a tracked transaction. This indicates a bookkeeping invariant
// violation and aborts the batch.
var ErrInconsistentState = errors.New("engine: completed handle does not map to a tracked transaction")

// ExchangeInfo captures per-exchange diagnostics accumulated while the
// exchange was active in a batch.
type ExchangeInfo struct {
	TransactionID string
	HandleID      string
	AdmittedAt    time.Time
	Duration      time.Duration
}

// batchContext tracks one batch: the active handle-to-transaction bindings,
// the lazily consumed pending sequence and the batch's propagation mode.
// A batchContext is private to the goroutine driving its batch.
type batchContext struct {
	byHandle map[string]*core.Transaction
	byTx     map[*core.Transaction]core.TransportHandle
	info     map[*core.Transaction]ExchangeInfo

	next      func() (*core.Transaction, bool)
	stop      func()
	exhausted bool

	parallelism int
	throws      bool

	// feeding guards against re-entrant admission while a completion is
	// being processed.
	feeding bool
}

func newBatchContext(seq iter.Seq[*core.Transaction], parallelism int, throws bool) *batchContext {
	next, stop := iter.Pull(seq)
	return &batchContext{
		byHandle:    make(map[string]*core.Transaction),
		byTx:        make(map[*core.Transaction]core.TransportHandle),
		info:        make(map[*core.Transaction]ExchangeInfo),
		next:        next,
		stop:        stop,
		parallelism: parallelism,
		throws:      throws,
	}
}

// add registers the handle-to-transaction binding and marks the exchange
// active.
func (b *batchContext) add(tx *core.Transaction, h core.TransportHandle) {
	b.byHandle[h.ID()] = tx
	b.byTx[tx] = h
	b.info[tx] = ExchangeInfo{
		TransactionID: tx.ID,
		HandleID:      h.ID(),
		AdmittedAt:    time.Now(),
	}
}

// remove unregisters the binding for tx and returns the accumulated
// per-exchange diagnostics.
func (b *batchContext) remove(tx *core.Transaction) ExchangeInfo {
	info := b.info[tx]
	info.Duration = time.Since(info.AdmittedAt)
	if h, ok := b.byTx[tx]; ok {
		delete(b.byHandle, h.ID())
	}
	delete(b.byTx, tx)
	delete(b.info, tx)
	return info
}

// find resolves a completed transport handle back to its transaction.
func (b *batchContext) find(h core.TransportHandle) (*core.Transaction, error) {
	tx, ok := b.byHandle[h.ID()]
	if !ok {
		return nil, ErrInconsistentState
	}
	return tx, nil
}

// nextPending pulls the next not-yet-admitted transaction. ok is false once
// the pending sequence is exhausted.
func (b *batchContext) nextPending() (*core.Transaction, bool) {
	if b.exhausted {
		return nil, false
	}
	tx, ok := b.next()
	if !ok {
		b.exhausted = true
		return nil, false
	}
	return tx, true
}

// activeCount returns the number of exchanges currently bound to handles.
func (b *batchContext) activeCount() int { return len(b.byTx) }

// isActive reports whether the batch still has work: active exchanges or a
// non-exhausted pending sequence.
func (b *batchContext) isActive() bool {
	return len(b.byTx) > 0 || !b.exhausted
}

// removeAll drains every active binding, returning the detached handles so
// the caller can dispose of them. Used during a fatal-abort unwind.
func (b *batchContext) removeAll() []core.TransportHandle {
	handles := make([]core.TransportHandle, 0, len(b.byTx))
	for tx, h := range b.byTx {
		handles = append(handles, h)
		delete(b.byHandle, h.ID())
		delete(b.byTx, tx)
		delete(b.info, tx)
	}
	return handles
}

// throwsExceptions reports whether surfaced failures must propagate to the
// batch caller instead of being considered handled by the "error" event path.
func (b *batchContext) throwsExceptions() bool { return b.throws }

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/logging"
)

// MultiHandle drives many transport handles concurrently and reports their
// completions through the Perform / Wait / Completions contract. It
// implements core.MultiHandle.
//
// Engine-facing methods must be called from the single goroutine running the
// batch; the internal exchange goroutines only communicate through the
// completion channel.
type MultiHandle struct {
	logger logging.Logger

	mu      sync.Mutex
	active  map[string]*Handle
	done    chan core.Completion
	pending []core.Completion
	closed  bool
}

// NewMultiHandle creates an empty multiplexing handle.
func NewMultiHandle(optFns ...func(o *Options)) *MultiHandle {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &MultiHandle{
		logger: opts.Logger,
		active: make(map[string]*Handle),
		done:   make(chan core.Completion),
	}
}

// Add registers a transport handle and starts driving its exchange.
func (m *MultiHandle) Add(th core.TransportHandle) error {
	h, ok := th.(*Handle)
	if !ok {
		return fmt.Errorf("transport: foreign handle type %T", th)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("transport: multi handle is closed")
	}
	if _, exists := m.active[h.id]; exists {
		return fmt.Errorf("transport: handle %s already added", h.id)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	m.active[h.id] = h

	go m.run(ctx, h)

	return nil
}

// Remove detaches a transport handle, cancelling its exchange if still in
// flight. No-op for unknown handles.
func (m *MultiHandle) Remove(th core.TransportHandle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[th.ID()]
	if !ok {
		return nil
	}
	if h.cancel != nil {
		h.cancel()
	}
	delete(m.active, th.ID())
	return nil
}

// Perform drains any completions that are already available without blocking
// and reports how many exchanges are still in flight.
func (m *MultiHandle) Perform() (int, error) {
	for {
		select {
		case c := <-m.done:
			m.collect(c)
		default:
			m.mu.Lock()
			running := len(m.active)
			m.mu.Unlock()
			return running, nil
		}
	}
}

// Wait blocks until an exchange finishes or the timeout elapses. A zero
// return with nil error is a timed-out wake.
func (m *MultiHandle) Wait(timeout time.Duration) (int, error) {
	m.mu.Lock()
	ready := len(m.pending)
	idle := len(m.active) == 0
	m.mu.Unlock()
	if ready > 0 {
		return ready, nil
	}
	if idle {
		return 0, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c := <-m.done:
		m.collect(c)
		return 1, nil
	case <-timer.C:
		return 0, nil
	}
}

// Completions drains and returns the finished exchanges accumulated since the
// previous call.
func (m *MultiHandle) Completions() []core.Completion {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.pending
	m.pending = nil
	return out
}

// Close cancels all in-flight exchanges and marks the handle unusable.
func (m *MultiHandle) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, h := range m.active {
		if h.cancel != nil {
			h.cancel()
		}
		delete(m.active, id)
	}
	m.pending = nil
	return nil
}

func (m *MultiHandle) collect(c core.Completion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, c.Handle.ID())
	m.pending = append(m.pending, c)
}

// run drives one exchange to completion on its own goroutine and reports the
// outcome through the completion channel. A cancelled context drops the
// completion instead of blocking forever.
func (m *MultiHandle) run(ctx context.Context, h *Handle) {
	stats := core.NewTransferStats()
	err := m.exchange(ctx, h, stats)
	stats.Finish()

	select {
	case m.done <- core.Completion{Handle: h, Err: err, Stats: stats}:
	case <-ctx.Done():
	}
}

func (m *MultiHandle) exchange(ctx context.Context, h *Handle, stats *core.TransferStats) error {
	req := h.tx.Request

	httpReq, err := http.NewRequestWithContext(ctx, req.Method(), req.URL(), req.Body())
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for name, values := range req.Header() {
		httpReq.Header[name] = values
	}
	if httpReq.ContentLength > 0 {
		stats.SentBytes = httpReq.ContentLength
	}

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transfer failed: %w", err)
	}

	if resp.ContentLength >= 0 {
		stats.ReceivedBytes = resp.ContentLength
	}
	stats.Extra["proto"] = resp.Proto

	h.tx.Response = h.messages.NewResponse(resp.StatusCode, resp.Header, resp.Body)

	m.logger.Debug("response headers received",
		"handle_id", h.id, "transaction_id", h.tx.ID, "status", resp.StatusCode)

	// Headers listeners run before the body is consumed so they can still
	// abort large downloads by closing it.
	if err := core.EmitHeaders(h.tx); err != nil {
		_ = resp.Body.Close()
		return err
	}

	return nil
}

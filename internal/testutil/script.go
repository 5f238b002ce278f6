package testutil

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hupe1980/httpflow/core"
)

// Outcome scripts what happens when a scripted handle is driven to
// completion. Exactly one of the fields should be meaningful.
type Outcome struct {
	// Status > 0 attaches a response with this status code.
	Status int

	// Err reports a transport-level failure.
	Err error

	// Code is the low-level completion code attached to the stats.
	Code int

	// Drop completes the exchange with neither a response nor a failure,
	// exercising the missing-response classification.
	Drop bool
}

// ScriptedFactory implements core.HandleFactory. Each Create consumes the
// next scripted outcome for the transaction's URL, so retries see successive
// entries.
type ScriptedFactory struct {
	outcomes map[string][]Outcome

	// Created counts every handle built, including retries.
	Created int

	// Recycled counts retries (Create calls with a previous handle).
	Recycled int
}

// NewScriptedFactory creates a factory with no scripted outcomes. Unscripted
// URLs complete with status 200.
func NewScriptedFactory() *ScriptedFactory {
	return &ScriptedFactory{outcomes: make(map[string][]Outcome)}
}

// Script appends outcomes for a URL, consumed one per attempt.
func (f *ScriptedFactory) Script(url string, outcomes ...Outcome) *ScriptedFactory {
	f.outcomes[url] = append(f.outcomes[url], outcomes...)
	return f
}

func (f *ScriptedFactory) nextOutcome(url string) Outcome {
	queue := f.outcomes[url]
	if len(queue) == 0 {
		return Outcome{Status: http.StatusOK}
	}
	out := queue[0]
	f.outcomes[url] = queue[1:]
	return out
}

// Create builds a scripted handle for tx.
func (f *ScriptedFactory) Create(tx *core.Transaction, messages core.MessageFactory, existing core.TransportHandle) (core.TransportHandle, error) {
	if tx == nil || tx.Request == nil {
		return nil, fmt.Errorf("testutil: transaction without request")
	}
	attempt := 1
	if existing != nil {
		f.Recycled++
		if prev, ok := existing.(*ScriptedHandle); ok {
			attempt = prev.Attempt + 1
		}
		_ = existing.Close()
	}
	f.Created++

	return &ScriptedHandle{
		id:       core.NewID(),
		Tx:       tx,
		Messages: messages,
		Outcome:  f.nextOutcome(tx.Request.URL()),
		Attempt:  attempt,
	}, nil
}

// ScriptedHandle implements core.TransportHandle.
type ScriptedHandle struct {
	id       string
	Tx       *core.Transaction
	Messages core.MessageFactory
	Outcome  Outcome
	Attempt  int
	Closed   bool
}

// ID identifies the handle.
func (h *ScriptedHandle) ID() string { return h.id }

// Close marks the handle closed.
func (h *ScriptedHandle) Close() error {
	h.Closed = true
	return nil
}

// ScriptedMulti implements core.MultiHandle. Handles complete immediately on
// Add according to their scripted outcome; the peak size of the active set is
// recorded so tests can assert the concurrency window.
type ScriptedMulti struct {
	active  map[string]*ScriptedHandle
	pending []core.Completion

	// PeakActive records the largest number of simultaneously registered
	// handles.
	PeakActive int

	// Waits counts readiness waits; scripted completions are always
	// immediate, so a nonzero count signals a drain-loop misstep.
	Waits int

	// CloseCalls counts Close invocations, used by pool bound tests.
	CloseCalls int
}

// NewScriptedMulti creates an empty scripted multiplexing handle.
func NewScriptedMulti() *ScriptedMulti {
	return &ScriptedMulti{active: make(map[string]*ScriptedHandle)}
}

// Add registers the handle and immediately resolves its scripted outcome.
func (m *ScriptedMulti) Add(th core.TransportHandle) error {
	h, ok := th.(*ScriptedHandle)
	if !ok {
		return fmt.Errorf("testutil: foreign handle type %T", th)
	}
	m.active[h.id] = h
	if len(m.active) > m.PeakActive {
		m.PeakActive = len(m.active)
	}

	stats := core.NewTransferStats()
	stats.Code = h.Outcome.Code
	stats.Finish()

	switch {
	case h.Outcome.Err != nil:
		m.pending = append(m.pending, core.Completion{Handle: h, Err: h.Outcome.Err, Stats: stats})
	case h.Outcome.Drop:
		m.pending = append(m.pending, core.Completion{Handle: h, Stats: stats})
	default:
		h.Tx.Response = h.Messages.NewResponse(h.Outcome.Status, http.Header{}, nil)
		m.pending = append(m.pending, core.Completion{Handle: h, Stats: stats})
	}
	return nil
}

// Remove detaches the handle.
func (m *ScriptedMulti) Remove(th core.TransportHandle) error {
	delete(m.active, th.ID())
	return nil
}

// Perform reports how many handles have not yet been removed.
func (m *ScriptedMulti) Perform() (int, error) { return len(m.active), nil }

// Wait never blocks; scripted completions are immediate.
func (m *ScriptedMulti) Wait(timeout time.Duration) (int, error) {
	m.Waits++
	return len(m.pending), nil
}

// Completions drains the scripted completions.
func (m *ScriptedMulti) Completions() []core.Completion {
	out := m.pending
	m.pending = nil
	return out
}

// Close records the call and clears all state.
func (m *ScriptedMulti) Close() error {
	m.CloseCalls++
	m.active = make(map[string]*ScriptedHandle)
	m.pending = nil
	return nil
}

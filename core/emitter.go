package core

import (
	"math"
	"reflect"
	"sort"
)

// Priority sentinels accepted by On and Once. PriorityFirst resolves to one
// greater than the highest priority currently registered for the event name;
// PriorityLast resolves to one less than the lowest.
const (
	PriorityFirst = math.MaxInt
	PriorityLast  = math.MinInt
)

// Listener handles a single lifecycle event emission. The emitter passes
// itself alongside the event so listeners can register or remove other
// listeners during dispatch. A non-nil error aborts the emission and is
// returned to the Emit caller.
type Listener func(ev Event, em *Emitter) error

// SubscribedListener pairs a listener with the priority it should be
// registered at.
type SubscribedListener struct {
	Listener Listener
	Priority int
}

// Subscriber is a capability bundling listener registrations for several
// event names, attached and detached as a unit.
type Subscriber interface {
	// SubscribedEvents enumerates event names mapped to the listeners
	// (with priorities) that should be registered for them.
	SubscribedEvents() map[string][]SubscribedListener
}

type registration struct {
	listener Listener
	priority int
	seq      int
	once     bool
}

// Emitter dispatches named events to registered listeners in priority order.
// Higher priorities run earlier; ties preserve registration order. Each
// request owns exactly one Emitter.
//
// An Emitter is not safe for concurrent use. Under the engine's cooperative
// model a request's emitter is only ever driven by the goroutine running the
// batch, so no locking is needed.
type Emitter struct {
	registrations map[string][]registration
	unsorted      map[string]bool
	seq           int
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		registrations: make(map[string][]registration),
		unsorted:      make(map[string]bool),
	}
}

// On registers a listener for the named event at the given priority.
// PriorityFirst and PriorityLast are resolved at registration time.
func (e *Emitter) On(name string, l Listener, priority int) {
	e.register(name, l, priority, false)
}

// Once registers a listener that is deregistered immediately before its first
// invocation for the named event, so it runs at most one time even when that
// invocation returns an error.
func (e *Emitter) Once(name string, l Listener, priority int) {
	e.register(name, l, priority, true)
}

func (e *Emitter) register(name string, l Listener, priority int, once bool) {
	switch priority {
	case PriorityFirst:
		priority = e.maxPriority(name) + 1
	case PriorityLast:
		priority = e.minPriority(name) - 1
	}
	e.seq++
	e.registrations[name] = append(e.registrations[name], registration{
		listener: l,
		priority: priority,
		seq:      e.seq,
		once:     once,
	})
	e.unsorted[name] = true
}

func (e *Emitter) maxPriority(name string) int {
	regs := e.registrations[name]
	if len(regs) == 0 {
		return 0
	}
	max := regs[0].priority
	for _, r := range regs[1:] {
		if r.priority > max {
			max = r.priority
		}
	}
	return max
}

func (e *Emitter) minPriority(name string) int {
	regs := e.registrations[name]
	if len(regs) == 0 {
		return 0
	}
	min := regs[0].priority
	for _, r := range regs[1:] {
		if r.priority < min {
			min = r.priority
		}
	}
	return min
}

// RemoveListener removes every registration of l for the named event.
// Listener identity follows function identity, so the same function value
// (or method value) used at registration must be passed. No-op when absent.
func (e *Emitter) RemoveListener(name string, l Listener) {
	target := reflect.ValueOf(l).Pointer()
	regs := e.registrations[name]
	kept := regs[:0]
	for _, r := range regs {
		if reflect.ValueOf(r.listener).Pointer() != target {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		delete(e.registrations, name)
		delete(e.unsorted, name)
		return
	}
	e.registrations[name] = kept
}

func (e *Emitter) removeSeq(name string, seq int) {
	regs := e.registrations[name]
	for i, r := range regs {
		if r.seq == seq {
			e.registrations[name] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

func (e *Emitter) sorted(name string) []registration {
	if e.unsorted[name] {
		regs := e.registrations[name]
		sort.SliceStable(regs, func(i, j int) bool {
			if regs[i].priority != regs[j].priority {
				return regs[i].priority > regs[j].priority
			}
			return regs[i].seq < regs[j].seq
		})
		e.unsorted[name] = false
	}
	return e.registrations[name]
}

// Listeners returns the listeners registered for the named event in dispatch
// order.
func (e *Emitter) Listeners(name string) []Listener {
	regs := e.sorted(name)
	out := make([]Listener, len(regs))
	for i, r := range regs {
		out[i] = r.listener
	}
	return out
}

// ListenerMap returns every event name mapped to its listeners in dispatch
// order.
func (e *Emitter) ListenerMap() map[string][]Listener {
	out := make(map[string][]Listener, len(e.registrations))
	for name := range e.registrations {
		out[name] = e.Listeners(name)
	}
	return out
}

// Emit dispatches ev to every listener registered for the named event in
// priority order. A listener that sets the event's propagation-stopped flag
// ends the emission early; that alone is never an error. A listener returning
// an error aborts the emission and the error is returned to the caller.
func (e *Emitter) Emit(name string, ev Event) error {
	regs := e.sorted(name)
	snapshot := make([]registration, len(regs))
	copy(snapshot, regs)

	for _, r := range snapshot {
		if r.once {
			e.removeSeq(name, r.seq)
		}
		if err := r.listener(ev, e); err != nil {
			return err
		}
		if ev.PropagationStopped() {
			break
		}
	}
	return nil
}

// Attach bulk-registers every listener the subscriber exposes.
func (e *Emitter) Attach(s Subscriber) {
	for name, entries := range s.SubscribedEvents() {
		for _, entry := range entries {
			e.On(name, entry.Listener, entry.Priority)
		}
	}
}

// Detach removes every listener the subscriber exposes.
func (e *Emitter) Detach(s Subscriber) {
	for name, entries := range s.SubscribedEvents() {
		for _, entry := range entries {
			e.RemoveListener(name, entry.Listener)
		}
	}
}

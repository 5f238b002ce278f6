package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitter_DispatchesInPriorityOrder(t *testing.T) {
	em := NewEmitter()
	var order []string

	record := func(name string) Listener {
		return func(ev Event, em *Emitter) error {
			order = append(order, name)
			return nil
		}
	}

	em.On(EventBefore, record("low"), -5)
	em.On(EventBefore, record("mid"), 0)
	em.On(EventBefore, record("high"), 10)

	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))
	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestEmitter_EqualPrioritiesPreserveRegistrationOrder(t *testing.T) {
	em := NewEmitter()
	var order []int

	for i := 0; i < 5; i++ {
		i := i
		em.On(EventComplete, func(ev Event, em *Emitter) error {
			order = append(order, i)
			return nil
		}, 0)
	}

	require.NoError(t, em.Emit(EventComplete, NewCompleteEvent(&Transaction{}, nil)))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestEmitter_FirstAndLastSentinels(t *testing.T) {
	em := NewEmitter()
	var order []string

	record := func(name string) Listener {
		return func(ev Event, em *Emitter) error {
			order = append(order, name)
			return nil
		}
	}

	em.On(EventBefore, record("base"), 3)
	em.On(EventBefore, record("first"), PriorityFirst)
	em.On(EventBefore, record("last"), PriorityLast)
	// A second "first" outranks the previous one.
	em.On(EventBefore, record("firster"), PriorityFirst)

	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))
	assert.Equal(t, []string{"firster", "first", "base", "last"}, order)
}

func TestEmitter_OnceRunsAtMostOneTime(t *testing.T) {
	em := NewEmitter()
	calls := 0

	em.Once(EventBefore, func(ev Event, em *Emitter) error {
		calls++
		// The listener must already be deregistered while it runs.
		assert.Empty(t, em.Listeners(EventBefore))
		return nil
	}, 0)

	require.Len(t, em.Listeners(EventBefore), 1)
	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))
	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))

	assert.Equal(t, 1, calls)
	assert.Empty(t, em.Listeners(EventBefore))
}

func TestEmitter_OnceDeregisteredEvenWhenListenerFails(t *testing.T) {
	em := NewEmitter()
	boom := errors.New("boom")
	calls := 0

	em.Once(EventBefore, func(ev Event, em *Emitter) error {
		calls++
		return boom
	}, 0)

	err := em.Emit(EventBefore, NewBeforeEvent(&Transaction{}))
	require.ErrorIs(t, err, boom)
	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))
	assert.Equal(t, 1, calls)
}

func TestEmitter_RemoveListener(t *testing.T) {
	em := NewEmitter()
	var called bool

	keep := func(ev Event, em *Emitter) error { return nil }
	drop := func(ev Event, em *Emitter) error { called = true; return nil }

	em.On(EventError, keep, 0)
	em.On(EventError, drop, 0)
	require.Len(t, em.Listeners(EventError), 2)

	em.RemoveListener(EventError, drop)
	require.Len(t, em.Listeners(EventError), 1)

	// Removing an absent listener is a no-op.
	em.RemoveListener(EventError, drop)
	em.RemoveListener(EventHeaders, drop)

	require.NoError(t, em.Emit(EventError, NewErrorEvent(&Transaction{}, NewTransferError("x", nil), nil)))
	assert.False(t, called)
}

func TestEmitter_StopPropagationEndsEmission(t *testing.T) {
	em := NewEmitter()
	var reachedSecond bool

	em.On(EventBefore, func(ev Event, em *Emitter) error {
		ev.StopPropagation()
		return nil
	}, 1)
	em.On(EventBefore, func(ev Event, em *Emitter) error {
		reachedSecond = true
		return nil
	}, 0)

	ev := NewBeforeEvent(&Transaction{})
	require.NoError(t, em.Emit(EventBefore, ev))
	assert.True(t, ev.PropagationStopped())
	assert.False(t, reachedSecond)
}

func TestEmitter_ListenerMap(t *testing.T) {
	em := NewEmitter()
	l := func(ev Event, em *Emitter) error { return nil }

	em.On(EventBefore, l, 0)
	em.On(EventComplete, l, 0)
	em.On(EventComplete, l, 5)

	all := em.ListenerMap()
	assert.Len(t, all, 2)
	assert.Len(t, all[EventBefore], 1)
	assert.Len(t, all[EventComplete], 2)
}

type recordingSubscriber struct {
	order *[]string
}

func (s *recordingSubscriber) SubscribedEvents() map[string][]SubscribedListener {
	return map[string][]SubscribedListener{
		EventBefore: {
			{Listener: s.onBefore, Priority: 100},
		},
		EventComplete: {
			{Listener: s.onComplete, Priority: 0},
		},
	}
}

func (s *recordingSubscriber) onBefore(ev Event, em *Emitter) error {
	*s.order = append(*s.order, "before")
	return nil
}

func (s *recordingSubscriber) onComplete(ev Event, em *Emitter) error {
	*s.order = append(*s.order, "complete")
	return nil
}

func TestEmitter_AttachAndDetachSubscriber(t *testing.T) {
	em := NewEmitter()
	var order []string
	sub := &recordingSubscriber{order: &order}

	em.Attach(sub)
	require.Len(t, em.Listeners(EventBefore), 1)
	require.Len(t, em.Listeners(EventComplete), 1)

	require.NoError(t, em.Emit(EventBefore, NewBeforeEvent(&Transaction{})))
	require.NoError(t, em.Emit(EventComplete, NewCompleteEvent(&Transaction{}, nil)))
	assert.Equal(t, []string{"before", "complete"}, order)

	em.Detach(sub)
	assert.Empty(t, em.Listeners(EventBefore))
	assert.Empty(t, em.Listeners(EventComplete))
}

func TestEmitter_ListenerErrorAbortsEmission(t *testing.T) {
	em := NewEmitter()
	boom := errors.New("boom")
	var reachedSecond bool

	em.On(EventBefore, func(ev Event, em *Emitter) error { return boom }, 1)
	em.On(EventBefore, func(ev Event, em *Emitter) error {
		reachedSecond = true
		return nil
	}, 0)

	err := em.Emit(EventBefore, NewBeforeEvent(&Transaction{}))
	require.ErrorIs(t, err, boom)
	assert.False(t, reachedSecond)
}

package engine

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/internal/testutil"
)

type stubHandle struct{ id string }

func (h *stubHandle) ID() string   { return h.id }
func (h *stubHandle) Close() error { return nil }

func txs(n int) []*core.Transaction {
	out := make([]*core.Transaction, n)
	for i := range out {
		out[i] = testutil.NewTransactionBuilder().Build()
	}
	return out
}

func TestBatchContext_AddFindRemove(t *testing.T) {
	list := txs(1)
	b := newBatchContext(slices.Values(list), 2, false)
	defer b.stop()

	h := &stubHandle{id: "h-1"}
	b.add(list[0], h)
	assert.Equal(t, 1, b.activeCount())

	found, err := b.find(h)
	require.NoError(t, err)
	assert.Same(t, list[0], found)

	info := b.remove(list[0])
	assert.Equal(t, list[0].ID, info.TransactionID)
	assert.Equal(t, "h-1", info.HandleID)
	assert.False(t, info.AdmittedAt.IsZero())
	assert.Equal(t, 0, b.activeCount())
}

func TestBatchContext_FindUnknownHandleIsInconsistent(t *testing.T) {
	b := newBatchContext(slices.Values(txs(0)), 1, false)
	defer b.stop()

	_, err := b.find(&stubHandle{id: "ghost"})
	assert.ErrorIs(t, err, ErrInconsistentState)
}

func TestBatchContext_NextPendingConsumesLazily(t *testing.T) {
	pulled := 0
	seq := func(yield func(*core.Transaction) bool) {
		for i := 0; i < 3; i++ {
			pulled++
			if !yield(testutil.NewTransactionBuilder().Build()) {
				return
			}
		}
	}

	b := newBatchContext(seq, 1, false)
	defer b.stop()

	_, ok := b.nextPending()
	require.True(t, ok)
	assert.Equal(t, 1, pulled)

	_, ok = b.nextPending()
	require.True(t, ok)
	assert.Equal(t, 2, pulled)
}

func TestBatchContext_IsActive(t *testing.T) {
	list := txs(1)
	b := newBatchContext(slices.Values(list), 1, false)
	defer b.stop()

	// Pending sequence not yet exhausted.
	assert.True(t, b.isActive())

	tx, ok := b.nextPending()
	require.True(t, ok)
	h := &stubHandle{id: "h-1"}
	b.add(tx, h)

	// Sequence exhausts, but the exchange is still active.
	_, ok = b.nextPending()
	require.False(t, ok)
	assert.True(t, b.isActive())

	b.remove(tx)
	assert.False(t, b.isActive())
}

func TestBatchContext_NextPendingAfterExhaustionStaysEmpty(t *testing.T) {
	b := newBatchContext(slices.Values(txs(0)), 1, false)
	defer b.stop()

	_, ok := b.nextPending()
	require.False(t, ok)
	_, ok = b.nextPending()
	assert.False(t, ok)
}

func TestBatchContext_RemoveAllDrainsBindings(t *testing.T) {
	list := txs(3)
	b := newBatchContext(slices.Values(list), 3, false)
	defer b.stop()

	for i, tx := range list {
		b.add(tx, &stubHandle{id: string(rune('a' + i))})
	}
	require.Equal(t, 3, b.activeCount())

	handles := b.removeAll()
	assert.Len(t, handles, 3)
	assert.Equal(t, 0, b.activeCount())
}

func TestBatchContext_ThrowsExceptions(t *testing.T) {
	single := newBatchContext(slices.Values(txs(0)), 1, true)
	defer single.stop()
	parallel := newBatchContext(slices.Values(txs(0)), 4, false)
	defer parallel.stop()

	assert.True(t, single.throwsExceptions())
	assert.False(t, parallel.throwsExceptions())
}

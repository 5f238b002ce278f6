package transport

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/httpflow/core"
	"github.com/hupe1980/httpflow/message"
)

func drive(t *testing.T, m *MultiHandle, timeout time.Duration) []core.Completion {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		_, err := m.Perform()
		require.NoError(t, err)
		if completions := m.Completions(); len(completions) > 0 {
			return completions
		}
		_, err = m.Wait(50 * time.Millisecond)
		require.NoError(t, err)
	}
	t.Fatal("timed out waiting for a completion")
	return nil
}

func newTransaction(method, url string, body io.Reader) *core.Transaction {
	req := message.NewRequest(method, url, func(o *message.RequestOptions) {
		o.Body = body
	})
	return core.NewTransaction(req)
}

func TestFactory_Create_Validation(t *testing.T) {
	f := NewFactory()

	_, err := f.Create(nil, message.NewFactory(), nil)
	assert.Error(t, err)

	_, err = f.Create(&core.Transaction{}, message.NewFactory(), nil)
	assert.Error(t, err)

	_, err = f.Create(newTransaction(http.MethodGet, "http://example.test/", nil), nil, nil)
	assert.Error(t, err)
}

func TestFactory_Create_RecyclesPreviousHandle(t *testing.T) {
	f := NewFactory()
	tx := newTransaction(http.MethodGet, "http://example.test/", nil)

	first, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.(*Handle).Attempt())

	second, err := f.Create(tx, message.NewFactory(), first)
	require.NoError(t, err)
	assert.Equal(t, 2, second.(*Handle).Attempt())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestMultiHandle_DrivesExchangeToCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Probe", "yes")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	tx := newTransaction(http.MethodGet, srv.URL, nil)
	headersSeen := false
	tx.Request.Emitter().On(core.EventHeaders, func(ev core.Event, em *core.Emitter) error {
		headersSeen = true
		// Headers fire once the response is attached, before the body
		// is consumed.
		assert.NotNil(t, ev.Transaction().Response)
		return nil
	}, 0)

	f := NewFactory()
	h, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)

	m := NewMultiHandle()
	defer m.Close()
	require.NoError(t, m.Add(h))

	completions := drive(t, m, 5*time.Second)
	require.Len(t, completions, 1)
	require.NoError(t, completions[0].Err)
	assert.True(t, headersSeen)

	require.NotNil(t, tx.Response)
	assert.Equal(t, http.StatusOK, tx.Response.StatusCode())
	assert.Equal(t, "yes", tx.Response.Header().Get("X-Probe"))

	body, err := io.ReadAll(tx.Response.Body())
	require.NoError(t, err)
	require.NoError(t, tx.Response.Body().Close())
	assert.Equal(t, "hello", string(body))

	stats := completions[0].Stats
	require.NotNil(t, stats)
	assert.False(t, stats.Start.IsZero())
	assert.False(t, stats.End.IsZero())
}

func TestMultiHandle_SendsRequestBodyAndHeaders(t *testing.T) {
	var gotBody []byte
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Get("X-Token")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	req := message.NewRequest(http.MethodPost, srv.URL, func(o *message.RequestOptions) {
		o.Body = bytes.NewReader([]byte("payload"))
	})
	req.Header().Set("X-Token", "secret")
	tx := core.NewTransaction(req)

	f := NewFactory()
	h, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)

	m := NewMultiHandle()
	defer m.Close()
	require.NoError(t, m.Add(h))

	completions := drive(t, m, 5*time.Second)
	require.Len(t, completions, 1)
	require.NoError(t, completions[0].Err)

	assert.Equal(t, "payload", string(gotBody))
	assert.Equal(t, "secret", gotHeader)
	assert.Equal(t, http.StatusCreated, tx.Response.StatusCode())
}

func TestMultiHandle_ReportsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close() // nothing is listening anymore

	tx := newTransaction(http.MethodGet, url, nil)

	f := NewFactory()
	h, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)

	m := NewMultiHandle()
	defer m.Close()
	require.NoError(t, m.Add(h))

	completions := drive(t, m, 5*time.Second)
	require.Len(t, completions, 1)
	assert.Error(t, completions[0].Err)
	assert.Nil(t, tx.Response)
}

func TestMultiHandle_HeadersListenerFailureFailsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("big download"))
	}))
	defer srv.Close()

	boom := errors.New("too large, aborting")
	tx := newTransaction(http.MethodGet, srv.URL, nil)
	tx.Request.Emitter().On(core.EventHeaders, func(ev core.Event, em *core.Emitter) error {
		return boom
	}, 0)

	f := NewFactory()
	h, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)

	m := NewMultiHandle()
	defer m.Close()
	require.NoError(t, m.Add(h))

	completions := drive(t, m, 5*time.Second)
	require.Len(t, completions, 1)
	assert.ErrorIs(t, completions[0].Err, boom)
}

func TestMultiHandle_RejectsForeignHandles(t *testing.T) {
	m := NewMultiHandle()
	defer m.Close()

	assert.Error(t, m.Add(&foreignHandle{}))
}

type foreignHandle struct{}

func (foreignHandle) ID() string   { return "foreign" }
func (foreignHandle) Close() error { return nil }

func TestMultiHandle_AddAfterCloseFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tx := newTransaction(http.MethodGet, srv.URL, nil)
	f := NewFactory()
	h, err := f.Create(tx, message.NewFactory(), nil)
	require.NoError(t, err)

	m := NewMultiHandle()
	require.NoError(t, m.Close())
	assert.Error(t, m.Add(h))
}

func TestMultiHandle_RemoveUnknownHandleIsNoOp(t *testing.T) {
	m := NewMultiHandle()
	defer m.Close()
	assert.NoError(t, m.Remove(&foreignHandle{}))
}

package conn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	name   string
	closed atomic.Int32
}

func (f *fakeClient) Submit(context.Context, protocol.Operation) (*protocol.Record, error) {
	return nil, nil
}

func (f *fakeClient) SubmitBatch(context.Context, []protocol.Key, []string) ([]protocol.BatchEntry, error) {
	return nil, nil
}

func (f *fakeClient) Info() protocol.ConnectionInfo {
	return protocol.ConnectionInfo{ClusterName: f.name}
}

func (f *fakeClient) Close() error {
	f.closed.Add(1)
	return nil
}

func TestAcquireAfterCloseFails(t *testing.T) {
	c := &fakeClient{name: "a"}
	h := NewHandle(c)
	require.True(t, h.IsConnected())

	h.Close()
	assert.False(t, h.IsConnected())
	assert.Equal(t, int32(1), c.closed.Load())

	_, err := h.Acquire()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestInflightOperationSurvivesClose(t *testing.T) {
	c := &fakeClient{name: "a"}
	h := NewHandle(c)

	s, err := h.Acquire()
	require.NoError(t, err)

	h.Close()
	assert.Equal(t, int32(0), c.closed.Load(), "client closed while still in use")
	assert.Equal(t, "a", s.Info().ClusterName)

	s.Release()
	assert.Equal(t, int32(1), c.closed.Load())

	// closing again does nothing
	h.Close()
	assert.Equal(t, int32(1), c.closed.Load())
}

func TestSwapRetiresPreviousSession(t *testing.T) {
	a := &fakeClient{name: "a"}
	b := &fakeClient{name: "b"}
	h := NewHandle(a)

	old, err := h.Acquire()
	require.NoError(t, err)

	h.Swap(b)
	cur, err := h.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "b", cur.Info().ClusterName)
	assert.Equal(t, "a", old.Info().ClusterName)
	assert.Equal(t, int32(0), a.closed.Load())

	old.Release()
	assert.Equal(t, int32(1), a.closed.Load())

	cur.Release()
	assert.Equal(t, int32(0), b.closed.Load(), "active session must stay open")
}

func TestReconnect(t *testing.T) {
	h, err := Dial(context.Background(), func(context.Context) (protocol.Client, error) {
		return &fakeClient{name: "first"}, nil
	})
	require.NoError(t, err)

	dialErr := errors.New("unreachable")
	err = h.Reconnect(context.Background(), func(context.Context) (protocol.Client, error) {
		return nil, dialErr
	})
	assert.ErrorIs(t, err, dialErr)

	s, err := h.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "first", s.Info().ClusterName)
	s.Release()

	require.NoError(t, h.Reconnect(context.Background(), func(context.Context) (protocol.Client, error) {
		return &fakeClient{name: "second"}, nil
	}))
	s, err = h.Acquire()
	require.NoError(t, err)
	assert.Equal(t, "second", s.Info().ClusterName)
	s.Release()
}

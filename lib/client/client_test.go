package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/batch"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/bridge"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/common"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/conn"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/host"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient counts batch requests reaching the backend
type countingClient struct {
	protocol.Client
	batches atomic.Int32
}

func (c *countingClient) SubmitBatch(ctx context.Context, keys []protocol.Key, bins []string) ([]protocol.BatchEntry, error) {
	c.batches.Add(1)
	return c.Client.SubmitBatch(ctx, keys, bins)
}

func memoryDialer(config map[string]interface{}) conn.Dialer {
	return func(context.Context) (protocol.Client, error) {
		cfg := map[string]interface{}{"InMemory": true}
		for k, v := range config {
			cfg[k] = v
		}
		return memory.New(cfg)
	}
}

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	cfg := common.DefaultClientConfig()
	cfg.Telemetry.Metrics = false
	c, err := Connect(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func key(userKey any) protocol.Key {
	return protocol.MustKey("test", "demo", userKey)
}

// --------------------------------------------------------------------------
// Single record operations
// --------------------------------------------------------------------------

func TestCRUD(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	k := key("user1")

	rec, err := c.Put(ctx, k, []protocol.Bin{{Name: "age", Value: int64(30)}, {Name: "name", Value: "Alice"}}, protocol.WritePolicy{TTL: 600})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.Generation)

	got, err := c.Get(ctx, k)
	require.NoError(t, err)
	age, _ := got.Bin("age")
	assert.Equal(t, int64(30), age)

	got, err = c.Get(ctx, k, "name")
	require.NoError(t, err)
	assert.Equal(t, []protocol.Bin{{Name: "name", Value: "Alice"}}, got.Bins)

	meta, err := c.Exists(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, uint32(1), meta.Generation)

	meta, err = c.Touch(ctx, k, protocol.TTLNeverExpires)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), meta.Generation)
	assert.Equal(t, protocol.TTLNeverExpires, meta.TTL)

	require.NoError(t, c.Delete(ctx, k, protocol.WritePolicy{}))
	meta, err = c.Exists(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, meta)

	_, err = c.Get(ctx, k)
	assert.ErrorIs(t, err, bridge.ErrNotFound)
	assert.ErrorIs(t, err, bridge.ErrRecord)
	assert.Contains(t, err.Error(), "AEROSPIKE_ERR (2)")
}

func TestGenerationMismatch(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	k := key("gen")

	_, err := c.Put(ctx, k, []protocol.Bin{{Name: "n", Value: int64(1)}}, protocol.WritePolicy{})
	require.NoError(t, err)

	_, err = c.Put(ctx, k, []protocol.Bin{{Name: "n", Value: int64(2)}}, protocol.WritePolicy{Generation: 9, GenerationEQ: true})
	assert.ErrorIs(t, err, bridge.ErrGeneration)

	var mapped *bridge.Error
	require.ErrorAs(t, err, &mapped)
	assert.Equal(t, protocol.ResultGeneration, mapped.Code)
}

// gatedClient blocks reads until gate is closed
type gatedClient struct {
	protocol.Client
	gate <-chan struct{}
}

func (g *gatedClient) Submit(ctx context.Context, op protocol.Operation) (*protocol.Record, error) {
	if op.Kind == protocol.OpGet {
		select {
		case <-g.gate:
		case <-time.After(2 * time.Second):
			return nil, protocol.NewError(protocol.ResultTimeout, "gate never opened")
		}
	}
	return g.Client.Submit(ctx, op)
}

func TestBlockingCallReleasesHostLock(t *testing.T) {
	gil := host.NewGIL()
	otherRan := make(chan struct{})
	dial := func(ctx context.Context) (protocol.Client, error) {
		inner, err := memoryDialer(nil)(ctx)
		if err != nil {
			return nil, err
		}
		return &gatedClient{Client: inner, gate: otherRan}, nil
	}
	c := newTestClient(t, WithLock(gil), WithDialer(dial))

	gil.Acquire()
	defer gil.Release()

	_, err := c.Put(context.Background(), key("k"), []protocol.Bin{{Name: "n", Value: int64(1)}}, protocol.WritePolicy{})
	require.NoError(t, err)
	assert.True(t, gil.Held(), "lock is held again after the call")

	// the read only completes once another host goroutine ran while it was in flight
	go func() {
		gil.Do(func() {})
		close(otherRan)
	}()

	rec, err := c.Get(context.Background(), key("k"))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.Generation)
	assert.True(t, gil.Held())
}

func TestTimedOp(t *testing.T) {
	op := timedOp[int](20*time.Millisecond, func(ctx context.Context, _ *conn.Session) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	_, err := op(context.Background(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, bridge.MapError(err), bridge.ErrTimeout)
}

// --------------------------------------------------------------------------
// Batch operations
// --------------------------------------------------------------------------

func TestBatchReadKeepsInputOrder(t *testing.T) {
	c := newTestClient(t, WithDialer(memoryDialer(map[string]interface{}{"Latency": 2 * time.Millisecond})))
	ctx := context.Background()

	var keys []protocol.Key
	for i := 0; i < 30; i++ {
		k := key(fmt.Sprintf("k%d", i))
		keys = append(keys, k)
		if i%4 == 1 {
			continue
		}
		_, err := c.Put(ctx, k, []protocol.Bin{{Name: "n", Value: int64(i)}, {Name: "tag", Value: fmt.Sprintf("t%d", i)}}, protocol.WritePolicy{})
		require.NoError(t, err)
	}

	schema := batch.Schema{batch.IntField("n", 8), batch.BytesField("tag", 4)}
	res, err := c.BatchRead(ctx, keys, schema)
	require.NoError(t, err)
	require.Equal(t, len(keys), res.Len())

	for i := range keys {
		assert.Equal(t, i, res.Index[fmt.Sprintf("k%d", i)])
		if i%4 == 1 {
			assert.Equal(t, int32(protocol.ResultKeyNotFound), res.Codes[i])
			assert.False(t, res.Found(i))
			continue
		}
		n, err := res.Value(i, "n")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
		tag, err := res.Value(i, "tag")
		require.NoError(t, err)
		assert.Equal(t, []byte(fmt.Sprintf("t%d", i)), tag)
	}
}

func TestBatchReadRejectsSchemaBeforeIO(t *testing.T) {
	backend := &countingClient{}
	dial := func(ctx context.Context) (protocol.Client, error) {
		inner, err := memoryDialer(nil)(ctx)
		if err != nil {
			return nil, err
		}
		backend.Client = inner
		return backend, nil
	}
	c := newTestClient(t, WithDialer(dial))

	bad := batch.Schema{batch.IntField("a", 3)}
	_, err := c.BatchRead(context.Background(), []protocol.Key{key("x")}, bad)
	var schemaErr *batch.SchemaError
	assert.ErrorAs(t, err, &schemaErr)

	_, err = c.BatchReadAsync(context.Background(), []protocol.Key{key("x")}, batch.Schema{batch.TextField("s")})
	assert.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, int32(0), backend.batches.Load())

	_, err = c.BatchRead(context.Background(), []protocol.Key{key("x")}, batch.Schema{batch.IntField("a", 4)})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.batches.Load())
}

func TestBatchWriteRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	layout := batch.MustCompile(batch.Schema{
		batch.BytesField(batch.KeyField, 8),
		batch.UintField("age", 4),
		batch.BytesField("name", 8),
	})
	rows := layout.NewRows(3)
	for i, name := range []string{"Alice", "Bob", "Carol"} {
		require.NoError(t, layout.Put(rows, i, batch.KeyField, fmt.Sprintf("u%d", i)))
		require.NoError(t, layout.Put(rows, i, "age", 20+i))
		require.NoError(t, layout.Put(rows, i, "name", name))
	}

	codes, err := c.BatchWrite(ctx, rows, layout, protocol.WritePolicy{})
	require.NoError(t, err)
	assert.Equal(t, []protocol.ResultCode{protocol.ResultOK, protocol.ResultOK, protocol.ResultOK}, codes)

	rec, err := c.Get(ctx, key("u1"))
	require.NoError(t, err)
	age, _ := rec.Bin("age")
	name, _ := rec.Bin("name")
	assert.Equal(t, int64(21), age)
	assert.Equal(t, "Bob", name)

	// a generation check fails per row without failing the call
	codes, err = c.BatchWrite(ctx, rows, layout, protocol.WritePolicy{Generation: 7, GenerationEQ: true})
	require.NoError(t, err)
	assert.Equal(t, []protocol.ResultCode{protocol.ResultGeneration, protocol.ResultGeneration, protocol.ResultGeneration}, codes)

	_, err = c.BatchWrite(ctx, rows, batch.MustCompile(batch.Schema{batch.UintField("age", 4)}), protocol.WritePolicy{})
	assert.Error(t, err)
}

// --------------------------------------------------------------------------
// Non-blocking operations
// --------------------------------------------------------------------------

func TestAsyncOperationsOnLoop(t *testing.T) {
	gil := host.NewGIL()
	loop := host.NewLoop(gil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	c := newTestClient(t, WithLock(gil), WithLoop(loop))

	var (
		rec *protocol.Record
		err error
	)
	gil.Do(func() {
		put := c.PutAsync(context.Background(), key("a"), []protocol.Bin{{Name: "n", Value: int64(5)}}, protocol.WritePolicy{})
		rec, err = put.Wait(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), rec.Generation)

	gil.Do(func() {
		rec, err = c.GetAsync(context.Background(), key("a")).Wait(ctx)
	})
	require.NoError(t, err)
	n, _ := rec.Bin("n")
	assert.Equal(t, int64(5), n)

	var res *batch.Result
	gil.Do(func() {
		var read *bridge.Awaitable[*batch.Result]
		read, err = c.BatchReadAsync(context.Background(), []protocol.Key{key("missing"), key("a")}, batch.Schema{batch.IntField("n", 4)})
		if err != nil {
			return
		}
		res, err = read.Wait(ctx)
	})
	require.NoError(t, err)
	assert.Equal(t, []int32{int32(protocol.ResultKeyNotFound), int32(protocol.ResultOK)}, res.Codes)
	v, err := res.Value(1, "n")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)

	gil.Do(func() {
		_, err = c.GetAsync(context.Background(), key("missing")).Wait(ctx)
	})
	assert.ErrorIs(t, err, bridge.ErrNotFound)
}

func TestAsyncWaitWithoutLoop(t *testing.T) {
	gil := host.NewGIL()
	c := newTestClient(t, WithLock(gil))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var (
		rec *protocol.Record
		err error
	)
	gil.Do(func() {
		rec, err = c.PutAsync(ctx, key("b"), []protocol.Bin{{Name: "n", Value: int64(9)}}, protocol.WritePolicy{}).Wait(ctx)
	})
	require.NoError(t, err, "a finished operation must not come back cancelled")
	assert.Equal(t, uint32(1), rec.Generation)

	gil.Do(func() {
		rec, err = c.GetAsync(ctx, key("b")).Wait(ctx)
	})
	require.NoError(t, err)
	n, _ := rec.Bin("n")
	assert.Equal(t, int64(9), n)
	assert.False(t, gil.Held())
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

func TestReconnectAndClose(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	require.True(t, c.IsConnected())

	_, err := c.Put(ctx, key("k"), []protocol.Bin{{Name: "n", Value: int64(1)}}, protocol.WritePolicy{})
	require.NoError(t, err)

	// the embedded in-memory store starts empty on every dial
	require.NoError(t, c.Reconnect(ctx))
	_, err = c.Get(ctx, key("k"))
	assert.ErrorIs(t, err, bridge.ErrNotFound)

	require.NoError(t, c.Close())
	assert.False(t, c.IsConnected())
	_, err = c.Get(ctx, key("k"))
	assert.ErrorIs(t, err, bridge.ErrClient)
	assert.ErrorIs(t, err, conn.ErrClosed)
}

func TestConnectWithPrivateRuntime(t *testing.T) {
	cfg := common.DefaultClientConfig()
	cfg.Workers = 2
	cfg.Telemetry.Metrics = false
	c, err := Connect(context.Background(), cfg)
	require.NoError(t, err)

	_, err = c.Put(context.Background(), key("k"), []protocol.Bin{{Name: "n", Value: int64(1)}}, protocol.WritePolicy{})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Get(context.Background(), key("k"))
	assert.Error(t, err)
}

func TestConnectFailure(t *testing.T) {
	cfg := common.DefaultClientConfig()
	cfg.Store.InMemory = false
	cfg.Store.DataDir = ""
	_, err := Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, bridge.ErrClient)
}

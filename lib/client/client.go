package client

import (
	"context"
	"fmt"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/batch"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/bridge"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/common"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/conn"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/host"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol/memory"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/runtime"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/telemetry"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("client")

// Option changes how Connect wires a client
type Option func(*options)

type options struct {
	dial  conn.Dialer
	sched runtime.Scheduler
	lock  host.Lock
	loop  *host.Loop
}

// WithDialer replaces the embedded store by another protocol.Client
func WithDialer(dial conn.Dialer) Option {
	return func(o *options) { o.dial = dial }
}

// WithScheduler runs operations on sched instead of the shared or configured runtime
func WithScheduler(sched runtime.Scheduler) Option {
	return func(o *options) { o.sched = sched }
}

// WithLock sets the host lock released while operations wait for the network
func WithLock(lock host.Lock) Option {
	return func(o *options) { o.lock = lock }
}

// WithLoop delivers results of async operations on loop
func WithLoop(loop *host.Loop) Option {
	return func(o *options) { o.loop = loop }
}

// Client is the CRUD and batch surface on top of the connection handle, the execution bridge
// and the batch engine. All methods are safe for concurrent use; blocking methods expect the
// caller to hold the host lock.
type Client struct {
	config  common.ClientConfig
	dial    conn.Dialer
	handle  *conn.Handle
	bridge  *bridge.Bridge
	private *runtime.Executor
}

// Connect dials the backend and returns a ready client. Without WithDialer the embedded
// store described by cfg.Store is opened.
func Connect(ctx context.Context, cfg common.ClientConfig, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.dial == nil {
		store := cfg.Store
		o.dial = func(context.Context) (protocol.Client, error) {
			return memory.NewFromConfig(store)
		}
	}

	c := &Client{config: cfg, dial: o.dial}
	sched := o.sched
	if sched == nil && cfg.Workers > 0 {
		c.private = runtime.New(cfg.Workers)
		sched = c.private
	}
	telemetry.SetMetricsEnabled(cfg.Telemetry.Metrics)

	handle, err := conn.Dial(ctx, c.dial)
	if err != nil {
		if c.private != nil {
			_ = c.private.Close()
		}
		return nil, bridge.MapError(fmt.Errorf("connect: %w", err))
	}
	c.handle = handle
	c.bridge = bridge.New(sched, o.lock, o.loop)

	plog.Infof("connected to %s (namespace %s)", c.describe(), cfg.Namespace)
	return c, nil
}

// Config returns the configuration the client was created with
func (c *Client) Config() common.ClientConfig {
	return c.config
}

// IsConnected reports whether the client holds a session
func (c *Client) IsConnected() bool {
	return c.handle.IsConnected()
}

// Reconnect dials a new session and swaps it in. Operations already running finish on the
// old session.
func (c *Client) Reconnect(ctx context.Context) error {
	if err := c.handle.Reconnect(ctx, c.dial); err != nil {
		return bridge.MapError(fmt.Errorf("reconnect: %w", err))
	}
	return nil
}

// Close closes the session once running operations completed. Later calls fail with a
// client error.
func (c *Client) Close() error {
	c.handle.Close()
	if c.private != nil {
		return c.private.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Single record operations
// --------------------------------------------------------------------------

// Get reads a record. bins limits the returned bins, none returns all.
func (c *Client) Get(ctx context.Context, key protocol.Key, bins ...string) (*protocol.Record, error) {
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.labels(protocol.OpGet, key), c.getOp(key, bins), bridge.Identity[*protocol.Record])
}

// Put writes bins to a record. A nil bin value deletes the bin. The returned record carries
// the new generation and ttl but no bins.
func (c *Client) Put(ctx context.Context, key protocol.Key, bins []protocol.Bin, policy protocol.WritePolicy) (*protocol.Record, error) {
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.labels(protocol.OpPut, key), c.putOp(key, bins, policy), bridge.Identity[*protocol.Record])
}

// Delete removes a record
func (c *Client) Delete(ctx context.Context, key protocol.Key, policy protocol.WritePolicy) error {
	op := c.submitOp(protocol.Operation{Kind: protocol.OpDelete, Key: key, Policy: policy})
	_, err := bridge.RunBlocking(ctx, c.bridge, c.handle, c.labels(protocol.OpDelete, key), op, bridge.Identity[*protocol.Record])
	return err
}

// Exists returns the metadata of a record, or nil if the record does not exist
func (c *Client) Exists(ctx context.Context, key protocol.Key) (*protocol.Record, error) {
	op := c.submitOp(protocol.Operation{Kind: protocol.OpExists, Key: key})
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.labels(protocol.OpExists, key), op, bridge.Identity[*protocol.Record])
}

// Touch resets the ttl of a record and increments its generation
func (c *Client) Touch(ctx context.Context, key protocol.Key, ttl int32) (*protocol.Record, error) {
	op := c.submitOp(protocol.Operation{Kind: protocol.OpTouch, Key: key, Policy: protocol.WritePolicy{TTL: ttl}})
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.labels(protocol.OpTouch, key), op, bridge.Identity[*protocol.Record])
}

// GetAsync starts a read and returns immediately
func (c *Client) GetAsync(ctx context.Context, key protocol.Key, bins ...string) *bridge.Awaitable[*protocol.Record] {
	return bridge.RunAsync(ctx, c.bridge, c.handle, c.labels(protocol.OpGet, key), c.getOp(key, bins), bridge.Identity[*protocol.Record])
}

// PutAsync starts a write and returns immediately
func (c *Client) PutAsync(ctx context.Context, key protocol.Key, bins []protocol.Bin, policy protocol.WritePolicy) *bridge.Awaitable[*protocol.Record] {
	return bridge.RunAsync(ctx, c.bridge, c.handle, c.labels(protocol.OpPut, key), c.putOp(key, bins, policy), bridge.Identity[*protocol.Record])
}

// --------------------------------------------------------------------------
// Batch operations
// --------------------------------------------------------------------------

// BatchRead reads keys into a columnar result described by schema. The schema is validated
// before any network call. Rows are in input order; per key result codes are in
// Result.Codes and never returned as errors.
func (c *Client) BatchRead(ctx context.Context, keys []protocol.Key, schema batch.Schema, bins ...string) (*batch.Result, error) {
	layout, err := batch.Compile(schema)
	if err != nil {
		return nil, err
	}
	op, convert := c.batchReadOps(layout, keys, bins)
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.batchLabels("batch_read", keys), op, convert)
}

// BatchReadAsync is the non-blocking BatchRead. Schema errors are returned right away.
func (c *Client) BatchReadAsync(ctx context.Context, keys []protocol.Key, schema batch.Schema, bins ...string) (*bridge.Awaitable[*batch.Result], error) {
	layout, err := batch.Compile(schema)
	if err != nil {
		return nil, err
	}
	op, convert := c.batchReadOps(layout, keys, bins)
	return bridge.RunAsync(ctx, c.bridge, c.handle, c.batchLabels("batch_read", keys), op, convert), nil
}

// BatchWrite writes every row of a buffer laid out by layout. The row key comes from the
// _key field, namespace and set default to the client configuration. The returned codes
// hold one result code per row; only failures of the connection itself are returned as
// error.
func (c *Client) BatchWrite(ctx context.Context, rows []byte, layout *batch.Layout, policy protocol.WritePolicy) ([]protocol.ResultCode, error) {
	// the buffer belongs to the host, convert it before the lock is released
	records, err := batch.ToRecords(rows, layout, c.config.Namespace, c.config.Set)
	if err != nil {
		return nil, err
	}
	keys := make([]protocol.Key, len(records))
	for i := range records {
		keys[i] = records[i].Key
	}

	op := timedOp[[]protocol.ResultCode](c.timeout(), func(ctx context.Context, s *conn.Session) ([]protocol.ResultCode, error) {
		codes := make([]protocol.ResultCode, len(records))
		for i, rec := range records {
			_, err := s.Client().Submit(ctx, protocol.Operation{Kind: protocol.OpPut, Key: rec.Key, Bins: rec.Bins, Policy: policy})
			code := protocol.CodeOf(err)
			if !protocol.IsRecordLevel(code) {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			codes[i] = code
		}
		return codes, nil
	})
	return bridge.RunBlocking(ctx, c.bridge, c.handle, c.batchLabels("batch_write", keys), op, bridge.Identity[[]protocol.ResultCode])
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (c *Client) getOp(key protocol.Key, bins []string) bridge.Op[*protocol.Record] {
	return c.submitOp(protocol.Operation{Kind: protocol.OpGet, Key: key, BinNames: bins})
}

func (c *Client) putOp(key protocol.Key, bins []protocol.Bin, policy protocol.WritePolicy) bridge.Op[*protocol.Record] {
	return c.submitOp(protocol.Operation{Kind: protocol.OpPut, Key: key, Bins: bins, Policy: policy})
}

func (c *Client) submitOp(operation protocol.Operation) bridge.Op[*protocol.Record] {
	return timedOp[*protocol.Record](c.timeout(), func(ctx context.Context, s *conn.Session) (*protocol.Record, error) {
		return s.Client().Submit(ctx, operation)
	})
}

// batchReadOps returns the network part and the decoding part of a batch read. Decoding
// runs with the host lock held since it writes the result buffer.
func (c *Client) batchReadOps(layout *batch.Layout, keys []protocol.Key, bins []string) (bridge.Op[[]protocol.BatchEntry], bridge.Convert[[]protocol.BatchEntry, *batch.Result]) {
	op := timedOp[[]protocol.BatchEntry](c.timeout(), func(ctx context.Context, s *conn.Session) ([]protocol.BatchEntry, error) {
		return s.Client().SubmitBatch(ctx, keys, bins)
	})
	convert := func(entries []protocol.BatchEntry) (*batch.Result, error) {
		return batch.Decode(layout, keys, entries)
	}
	return op, convert
}

// timedOp applies the configured timeout. The deadline starts when the operation runs on the
// runtime, so a detached async operation keeps its own deadline.
func timedOp[T any](timeout time.Duration, op bridge.Op[T]) bridge.Op[T] {
	if timeout <= 0 {
		return op
	}
	return func(ctx context.Context, s *conn.Session) (T, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return op(ctx, s)
	}
}

func (c *Client) timeout() time.Duration {
	return time.Duration(c.config.TimeoutSecond) * time.Second
}

func (c *Client) labels(kind protocol.OpKind, key protocol.Key) telemetry.Labels {
	return telemetry.Labels{Operation: kind.String(), Namespace: key.Namespace, Set: key.Set}
}

// batchLabels uses the namespace and set of the first key, the configured ones for an
// empty batch
func (c *Client) batchLabels(operation string, keys []protocol.Key) telemetry.Labels {
	l := telemetry.Labels{Operation: operation, Namespace: c.config.Namespace, Set: c.config.Set}
	if len(keys) > 0 {
		l.Namespace, l.Set = keys[0].Namespace, keys[0].Set
	}
	return l
}

func (c *Client) describe() string {
	session, err := c.handle.Acquire()
	if err != nil {
		return "closed session"
	}
	defer session.Release()
	info := session.Info()
	if info.ServerPort > 0 {
		return fmt.Sprintf("%s:%d (%s)", info.ServerAddress, info.ServerPort, info.ClusterName)
	}
	return fmt.Sprintf("%s (%s)", info.ServerAddress, info.ClusterName)
}

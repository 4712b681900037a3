package memory

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol/serializer"
	"github.com/dgraph-io/badger/v3"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("memory")

// conflictRetries is how often a write is retried after a badger transaction conflict
const conflictRetries = 5

// Client is an embedded protocol.Client storing records in badger. It is the reference
// backend of the module: the same operations the network client offers, without a network.
type Client struct {
	db          *badger.DB
	serializer  serializer.IRecordSerializer
	info        protocol.ConnectionInfo
	concurrency int
	latency     time.Duration
	closed      atomic.Bool
	closeOnce   sync.Once
	closeErr    error
}

// New opens the store. The config map takes the keys
//
//	path         string                        badger directory (required unless InMemory)
//	InMemory     bool                          keep everything in memory
//	SyncWrites   bool                          fsync every write
//	Serializer   serializer.IRecordSerializer  record encoding (binary if unset)
//	ClusterName  string                        reported by Info
//	Concurrency  int                           parallel reads per batch (default 16)
//	Latency      time.Duration                 random delay per operation, for tests and demos
func New(config map[string]interface{}) (*Client, error) {
	path, _ := config["path"].(string)
	inMemory, _ := config["InMemory"].(bool)
	if path == "" && !inMemory {
		return nil, fmt.Errorf("memory: path is required for an on-disk store: %w", os.ErrInvalid)
	}

	opt := badger.DefaultOptions(path)
	if inMemory {
		opt = badger.DefaultOptions("").WithInMemory(true)
	}
	opt = opt.WithLoggingLevel(badger.WARNING).WithLogger(plog)

	// SyncWrites
	if syncWrites, ok := config["SyncWrites"].(bool); ok {
		opt = opt.WithSyncWrites(syncWrites)
	}

	if !inMemory {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.MkdirAll(path, os.FileMode(0700)); err != nil {
				return nil, err
			}
		}
	}

	c := &Client{
		serializer:  serializer.NewBinarySerializer(),
		concurrency: 16,
		info:        protocol.ConnectionInfo{ServerAddress: "embedded", ClusterName: "embedded"},
	}
	if !inMemory {
		c.info.ServerAddress = path
	}
	// Serializer
	if s, ok := config["Serializer"].(serializer.IRecordSerializer); ok && s != nil {
		c.serializer = s
	}
	// ClusterName
	if name, ok := config["ClusterName"].(string); ok && name != "" {
		c.info.ClusterName = name
	}
	// Concurrency
	if n, ok := config["Concurrency"].(int); ok && n > 0 {
		c.concurrency = n
	}
	// Latency
	if d, ok := config["Latency"].(time.Duration); ok {
		c.latency = d
	}

	db, err := badger.Open(opt)
	if err != nil {
		return nil, err
	}
	c.db = db
	plog.Infof("opened embedded store (%s, cluster %s)", c.info.ServerAddress, c.info.ClusterName)
	return c, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see protocol.Client)
// --------------------------------------------------------------------------

func (c *Client) Submit(ctx context.Context, op protocol.Operation) (*protocol.Record, error) {
	if err := c.enter(ctx); err != nil {
		return nil, err
	}
	switch op.Kind {
	case protocol.OpGet:
		return c.get(op.Key, op.BinNames, true)
	case protocol.OpExists:
		rec, err := c.get(op.Key, nil, false)
		if protocol.CodeOf(err) == protocol.ResultKeyNotFound {
			return nil, nil
		}
		return rec, err
	case protocol.OpPut:
		return c.put(op.Key, op.Bins, op.Policy)
	case protocol.OpTouch:
		return c.touch(op.Key, op.Policy)
	case protocol.OpDelete:
		return nil, c.delete(op.Key, op.Policy)
	default:
		return nil, protocol.NewError(protocol.ResultParameter, fmt.Sprintf("unsupported operation %s", op.Kind))
	}
}

func (c *Client) SubmitBatch(ctx context.Context, keys []protocol.Key, binFilter []string) ([]protocol.BatchEntry, error) {
	if c.closed.Load() {
		return nil, errStoreClosed
	}

	results := make(chan protocol.BatchEntry, len(keys))
	sem := make(chan struct{}, c.concurrency)
	var wg sync.WaitGroup

	for _, key := range keys {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}
		wg.Add(1)
		go func(key protocol.Key) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- c.readEntry(ctx, key, binFilter)
		}(key)
	}
	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// entries are returned in completion order
	entries := make([]protocol.BatchEntry, 0, len(keys))
	for e := range results {
		entries = append(entries, e)
	}
	return entries, nil
}

func (c *Client) Info() protocol.ConnectionInfo {
	return c.info
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.db.Close()
		plog.Infof("closed embedded store %s", c.info.ServerAddress)
	})
	return c.closeErr
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

var errStoreClosed = protocol.NewError(protocol.ResultConnectionError, "embedded store is closed")

// enter checks the client state and simulates the configured latency
func (c *Client) enter(ctx context.Context) error {
	if c.closed.Load() {
		return errStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.latency <= 0 {
		return nil
	}
	delay := time.Duration(rand.Int64N(int64(c.latency)))
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readEntry(ctx context.Context, key protocol.Key, binFilter []string) protocol.BatchEntry {
	entry := protocol.BatchEntry{Key: key}
	if err := c.enter(ctx); err != nil {
		entry.Code = protocol.CodeOf(err)
		return entry
	}
	rec, err := c.get(key, binFilter, true)
	entry.Code = protocol.CodeOf(err)
	entry.Record = rec
	return entry
}

func (c *Client) get(key protocol.Key, binFilter []string, withBins bool) (*protocol.Record, error) {
	var rec *protocol.Record
	err := c.db.View(func(txn *badger.Txn) error {
		stored, item, err := c.load(txn, key)
		if err != nil {
			return err
		}
		rec = c.toRecord(key, stored, item.ExpiresAt(), binFilter, withBins)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (c *Client) put(key protocol.Key, bins []protocol.Bin, policy protocol.WritePolicy) (*protocol.Record, error) {
	var rec *protocol.Record
	err := c.update(func(txn *badger.Txn) error {
		stored, item, err := c.load(txn, key)
		var expiresAt uint64
		switch {
		case err == nil:
			expiresAt = item.ExpiresAt()
		case protocol.CodeOf(err) == protocol.ResultKeyNotFound:
			stored = serializer.StoredRecord{}
			if stored.UserKey, err = serializer.EncodeValue(key.UserKey); err != nil {
				return err
			}
		default:
			return err
		}

		if err := checkGeneration(policy, stored.Generation); err != nil {
			return err
		}
		if err := stored.Merge(bins); err != nil {
			return err
		}
		stored.Generation++

		expiresAt, err = c.store(txn, key, stored, policy.TTL, expiresAt)
		if err != nil {
			return err
		}
		rec = c.toRecord(key, stored, expiresAt, nil, false)
		return nil
	})
	return rec, err
}

func (c *Client) touch(key protocol.Key, policy protocol.WritePolicy) (*protocol.Record, error) {
	var rec *protocol.Record
	err := c.update(func(txn *badger.Txn) error {
		stored, item, err := c.load(txn, key)
		if err != nil {
			return err
		}
		if err := checkGeneration(policy, stored.Generation); err != nil {
			return err
		}
		stored.Generation++
		expiresAt, err := c.store(txn, key, stored, policy.TTL, item.ExpiresAt())
		if err != nil {
			return err
		}
		rec = c.toRecord(key, stored, expiresAt, nil, false)
		return nil
	})
	return rec, err
}

func (c *Client) delete(key protocol.Key, policy protocol.WritePolicy) error {
	return c.update(func(txn *badger.Txn) error {
		stored, _, err := c.load(txn, key)
		if err != nil {
			return err
		}
		if err := checkGeneration(policy, stored.Generation); err != nil {
			return err
		}
		return txn.Delete(storageKey(key))
	})
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// update runs fn in a read-write transaction, retrying on conflicts with concurrent writers
func (c *Client) update(fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = c.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		plog.Debugf("write conflict, retrying (attempt %d)", attempt+1)
	}
	return protocol.NewError(protocol.ResultKeyBusy, "too many concurrent writes to the same key")
}

func (c *Client) load(txn *badger.Txn, key protocol.Key) (serializer.StoredRecord, *badger.Item, error) {
	var stored serializer.StoredRecord
	item, err := txn.Get(storageKey(key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return stored, nil, protocol.NewError(protocol.ResultKeyNotFound, "")
	}
	if err != nil {
		return stored, nil, protocol.NewError(protocol.ResultServerError, err.Error())
	}
	err = item.Value(func(val []byte) error {
		return c.serializer.Deserialize(val, &stored)
	})
	if err != nil {
		return stored, nil, protocol.NewError(protocol.ResultServerError, fmt.Sprintf("corrupt record %s: %v", key, err))
	}
	return stored, item, nil
}

// store writes the record and returns its new expiration (unix seconds, 0 for never).
// keepExpiresAt is the current expiration, used if ttl asks to keep it.
func (c *Client) store(txn *badger.Txn, key protocol.Key, stored serializer.StoredRecord, ttl int32, keepExpiresAt uint64) (uint64, error) {
	data, err := c.serializer.Serialize(stored)
	if err != nil {
		return 0, protocol.NewError(protocol.ResultParameter, err.Error())
	}
	entry := badger.NewEntry(storageKey(key), data)

	var expiresAt uint64
	switch {
	case ttl > 0:
		entry = entry.WithTTL(time.Duration(ttl) * time.Second)
		expiresAt = uint64(time.Now().Add(time.Duration(ttl) * time.Second).Unix())
	case ttl == protocol.TTLDontUpdate && keepExpiresAt > 0:
		entry.ExpiresAt = keepExpiresAt
		expiresAt = keepExpiresAt
	}
	if err := txn.SetEntry(entry); err != nil {
		return 0, err
	}
	return expiresAt, nil
}

func (c *Client) toRecord(key protocol.Key, stored serializer.StoredRecord, expiresAt uint64, binFilter []string, withBins bool) *protocol.Record {
	if key.UserKey == nil {
		key.UserKey = stored.UserKey.Decode()
	}
	rec := &protocol.Record{
		Key:        key,
		Generation: stored.Generation,
		TTL:        remainingTTL(expiresAt),
	}
	if withBins {
		rec.Bins = stored.ProtocolBins(binFilter)
	}
	return rec
}

func checkGeneration(policy protocol.WritePolicy, current uint32) error {
	if policy.GenerationEQ && policy.Generation != current {
		return protocol.NewError(protocol.ResultGeneration,
			fmt.Sprintf("expected generation %d, record has %d", policy.Generation, current))
	}
	return nil
}

// storageKey is namespace, a zero byte, then the digest
func storageKey(key protocol.Key) []byte {
	k := make([]byte, 0, len(key.Namespace)+1+protocol.DigestSize)
	k = append(k, key.Namespace...)
	k = append(k, 0)
	return append(k, key.Digest[:]...)
}

func remainingTTL(expiresAt uint64) int32 {
	if expiresAt == 0 {
		return protocol.TTLNeverExpires
	}
	left := int64(expiresAt) - time.Now().Unix()
	if left < 1 {
		left = 1
	}
	return int32(left)
}

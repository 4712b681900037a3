package protocol

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/crypto/ripemd160"
)

// --------------------------------------------------------------------------
// Keys
// --------------------------------------------------------------------------

// DigestSize is the size of a record digest in bytes
const DigestSize = 20

// Key identifies a record. UserKey is optional once the digest is known.
type Key struct {
	Namespace string
	Set       string
	UserKey   any
	Digest    [DigestSize]byte
}

// NewKey builds a key and computes its digest from set name and user key.
// Supported user key types are strings, integers and byte slices.
func NewKey(namespace, set string, userKey any) (Key, error) {
	k := Key{Namespace: namespace, Set: set, UserKey: userKey}

	var (
		particle byte
		payload  []byte
	)
	switch v := userKey.(type) {
	case string:
		particle, payload = particleString, []byte(v)
	case []byte:
		particle, payload = particleBlob, v
	case int:
		particle, payload = particleInteger, intBytes(int64(v))
	case int32:
		particle, payload = particleInteger, intBytes(int64(v))
	case int64:
		particle, payload = particleInteger, intBytes(v)
	case uint32:
		particle, payload = particleInteger, intBytes(int64(v))
	default:
		return Key{}, NewError(ResultParameter, fmt.Sprintf("unsupported user key type %T", userKey))
	}

	h := ripemd160.New()
	h.Write([]byte(set))
	h.Write([]byte{particle})
	h.Write(payload)
	copy(k.Digest[:], h.Sum(nil))
	return k, nil
}

// MustKey is like NewKey but panics on unsupported user key types
func MustKey(namespace, set string, userKey any) Key {
	k, err := NewKey(namespace, set, userKey)
	if err != nil {
		panic(err)
	}
	return k
}

// String returns "ns:set:userKey" (or the digest in hex if there is no user key)
func (k Key) String() string {
	if k.UserKey == nil {
		return fmt.Sprintf("%s:%s:%s", k.Namespace, k.Set, hex.EncodeToString(k.Digest[:]))
	}
	return fmt.Sprintf("%s:%s:%v", k.Namespace, k.Set, k.UserKey)
}

// UserKeyString renders the user key for lookups. ok is false if the key has no user key.
func (k Key) UserKeyString() (s string, ok bool) {
	switch v := k.UserKey.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return fmt.Sprint(v), true
	}
}

const (
	particleInteger byte = 1
	particleString  byte = 3
	particleBlob    byte = 4
)

func intBytes(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// --------------------------------------------------------------------------
// Records
// --------------------------------------------------------------------------

// TTLNeverExpires is the ttl reported for records without expiration
const TTLNeverExpires int32 = -1

// TTLDontUpdate keeps the current expiration of a record on write
const TTLDontUpdate int32 = -2

// Bin is a named value of a record. Values are nil, bool, int64, float64, string, []byte,
// []any or map[string]any.
type Bin struct {
	Name  string
	Value any
}

// Record is a record returned by the server. Bins keep the order reported by the server.
type Record struct {
	Key        Key
	Bins       []Bin
	Generation uint32
	// TTL in seconds, TTLNeverExpires if the record never expires
	TTL int32
}

// Bin returns the value of the named bin
func (r *Record) Bin(name string) (any, bool) {
	for _, b := range r.Bins {
		if b.Name == name {
			return b.Value, true
		}
	}
	return nil, false
}

// MetaTTL returns the ttl as stored in row metadata (0xFFFFFFFF for never expiring records)
func (r *Record) MetaTTL() uint32 {
	if r.TTL < 0 {
		return math.MaxUint32
	}
	return uint32(r.TTL)
}

// --------------------------------------------------------------------------
// Operations
// --------------------------------------------------------------------------

// OpKind is the kind of single record operation
type OpKind uint8

const (
	OpGet OpKind = iota
	OpPut
	OpDelete
	OpExists
	OpTouch
)

func (o OpKind) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpPut:
		return "put"
	case OpDelete:
		return "delete"
	case OpExists:
		return "exists"
	case OpTouch:
		return "touch"
	default:
		return fmt.Sprintf("OpKind(%d)", uint8(o))
	}
}

// WritePolicy carries per-write options.
type WritePolicy struct {
	// TTL in seconds, 0 uses the namespace default (no expiration), TTLNeverExpires is explicit
	// and TTLDontUpdate keeps the current expiration
	TTL int32
	// Generation is checked against the stored generation if GenerationEQ is set
	Generation   uint32
	GenerationEQ bool
}

// Operation is a single record operation
type Operation struct {
	Kind     OpKind
	Key      Key
	Bins     []Bin
	BinNames []string
	Policy   WritePolicy
}

// BatchEntry is the result of one key of a batch read
type BatchEntry struct {
	Key    Key
	Code   ResultCode
	Record *Record
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// ConnectionInfo describes the cluster a client is connected to
type ConnectionInfo struct {
	ServerAddress string
	ServerPort    int
	ClusterName   string
}

// Client is the cluster client used by the runtime. Implementations must be safe for
// concurrent use.
type Client interface {
	// Submit runs a single operation. For OpExists a nil record with a nil error means
	// the key was not found.
	Submit(ctx context.Context, op Operation) (*Record, error)
	// SubmitBatch reads the given keys. The returned entries may be in any order but there is
	// exactly one entry per input key. binFilter limits the returned bins (nil returns all).
	SubmitBatch(ctx context.Context, keys []Key, binFilter []string) ([]BatchEntry, error)
	// Info returns connection details used for tracing
	Info() ConnectionInfo
	// Close releases all resources of the client
	Close() error
}

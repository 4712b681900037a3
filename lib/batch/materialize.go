package batch

import (
	"context"
	"encoding/binary"
	"strconv"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/lni/dragonboat/v4/logger"
)

var plog = logger.GetLogger("batch")

// Submitter sends a batch read. Entries may come back in any order but there is exactly one
// per input key.
type Submitter interface {
	SubmitBatch(ctx context.Context, keys []protocol.Key, binFilter []string) ([]protocol.BatchEntry, error)
}

// Materialize reads keys and decodes the records straight into a packed row buffer. The
// schema is compiled before anything is sent, so a schema error never causes I/O.
func Materialize(ctx context.Context, sub Submitter, keys []protocol.Key, schema Schema, bins []string) (*Result, error) {
	layout, err := Compile(schema)
	if err != nil {
		return nil, err
	}
	entries, err := sub.SubmitBatch(ctx, keys, bins)
	if err != nil {
		return nil, err
	}
	return Decode(layout, keys, entries)
}

// entryKey identifies a record across namespaces, the digest covers only set and user key
type entryKey struct {
	namespace string
	digest    [protocol.DigestSize]byte
}

func keyOf(k protocol.Key) entryKey {
	return entryKey{namespace: k.Namespace, digest: k.Digest}
}

// Decode places entries into the rows of their input key. Entries are matched by namespace
// and digest; if a key occurs more than once its entries fill its positions in order.
func Decode(layout *Layout, keys []protocol.Key, entries []protocol.BatchEntry) (*Result, error) {
	res := newResult(layout, len(keys))

	positions := make(map[entryKey][]int, len(keys))
	for i, k := range keys {
		positions[keyOf(k)] = append(positions[keyOf(k)], i)
	}

	for _, e := range entries {
		id := keyOf(e.Key)
		pending := positions[id]
		if len(pending) == 0 {
			plog.Warningf("dropping batch entry for unrequested key %s", e.Key)
			continue
		}
		i := pending[0]
		positions[id] = pending[1:]

		res.Codes[i] = int32(e.Code)
		if e.Code != protocol.ResultOK || e.Record == nil {
			continue
		}
		if err := decodeRecord(res, i, e.Record); err != nil {
			return nil, err
		}
	}

	// a well behaved client never leaves a key without entry
	for _, pending := range positions {
		for _, i := range pending {
			plog.Warningf("no batch entry for key %s", keys[i])
			res.Codes[i] = int32(protocol.ResultClientError)
		}
	}

	for i, k := range keys {
		name, ok := k.UserKeyString()
		if !ok {
			name = strconv.Itoa(i)
		}
		res.Index[name] = i
	}
	return res, nil
}

func decodeRecord(res *Result, i int, rec *protocol.Record) error {
	meta := res.Meta[i*MetaSize : (i+1)*MetaSize]
	binary.LittleEndian.PutUint32(meta[0:4], rec.Generation)
	binary.LittleEndian.PutUint32(meta[4:8], rec.MetaTTL())

	row := res.Row(i)
	for _, f := range res.layout.fields {
		v, ok := rec.Bin(f.Name)
		if !ok {
			continue
		}
		if reason := writeValue(row[f.Offset:f.Offset+f.Size], f, v); reason != "" {
			return &DecodeError{Row: i, Field: f.Name, Reason: reason}
		}
	}
	return nil
}

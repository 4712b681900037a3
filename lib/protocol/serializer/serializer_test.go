package serializer

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
)

func mustCompressed(inner IRecordSerializer, algorithm string) func() IRecordSerializer {
	return func() IRecordSerializer {
		s, err := NewCompressed(inner, algorithm)
		if err != nil {
			panic(err)
		}
		return s
	}
}

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRecordSerializer{
	"JSON":        NewJSONSerializer,
	"GOB":         NewGOBSerializer,
	"Binary":      NewBinarySerializer,
	"Binary+zstd": mustCompressed(NewBinarySerializer(), CompressionZstd),
	"Binary+lz4":  mustCompressed(NewBinarySerializer(), CompressionLZ4),
	"JSON+zstd":   mustCompressed(NewJSONSerializer(), CompressionZstd),
}

type testRecord struct {
	userKey any
	gen     uint32
	bins    []protocol.Bin
}

// testRecords creates a set of records with different value types
func testRecords() []testRecord {
	return []testRecord{
		// Empty record without user key
		{},

		// Scalars
		{
			userKey: "user1",
			gen:     1,
			bins: []protocol.Bin{
				{Name: "age", Value: int64(30)},
				{Name: "score", Value: 1.5},
				{Name: "name", Value: "Alice"},
				{Name: "active", Value: true},
				{Name: "blob", Value: []byte{0, 1, 2}},
			},
		},

		// Integer key and negative numbers
		{
			userKey: int64(-7),
			gen:     42,
			bins: []protocol.Bin{
				{Name: "min", Value: int64(-1 << 63)},
				{Name: "neg", Value: -0.25},
			},
		},

		// Nested collections
		{
			userKey: []byte("raw-key"),
			gen:     3,
			bins: []protocol.Bin{
				{Name: "list", Value: []any{int64(1), "two", []any{3.0}}},
				{Name: "map", Value: map[string]any{"a": int64(1), "b": map[string]any{"c": "d"}}},
			},
		},
	}
}

// TestSerializerRoundTrip tests that records can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, tr := range testRecords() {
				rec, err := NewStoredRecord(tr.userKey, tr.gen, tr.bins)
				if err != nil {
					t.Fatalf("Failed to build record %d: %v", i, err)
				}

				// Serialize
				data, err := serializer.Serialize(rec)
				if err != nil {
					t.Errorf("Failed to serialize record %d: %v", i, err)
					continue
				}

				// Deserialize
				var result StoredRecord
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize record %d: %v", i, err)
					continue
				}

				// Compare
				if result.Generation != tr.gen {
					t.Errorf("Record %d generation: expected %d, got %d", i, tr.gen, result.Generation)
				}
				if got := result.UserKey.Decode(); !reflect.DeepEqual(got, tr.userKey) {
					t.Errorf("Record %d user key: expected %#v, got %#v", i, tr.userKey, got)
				}
				want := tr.bins
				if want == nil {
					want = []protocol.Bin{}
				}
				if got := result.ProtocolBins(nil); !reflect.DeepEqual(got, want) {
					t.Errorf("Record %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v", i, want, got)
				}
			}
		})
	}
}

// TestDeserializeResetsTarget tests that a reused target does not keep old bins
func TestDeserializeResetsTarget(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			full, _ := NewStoredRecord("k", 5, []protocol.Bin{{Name: "a", Value: int64(1)}})
			empty, _ := NewStoredRecord(nil, 0, nil)

			fullData, _ := serializer.Serialize(full)
			emptyData, _ := serializer.Serialize(empty)

			var target StoredRecord
			if err := serializer.Deserialize(fullData, &target); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if err := serializer.Deserialize(emptyData, &target); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if len(target.Bins) != 0 || target.Generation != 0 || target.UserKey.Type != TypeNil {
				t.Errorf("Target not reset: %+v", target)
			}
		})
	}
}

// TestBinaryErrorHandling tests truncated and corrupt input
func TestBinaryErrorHandling(t *testing.T) {
	serializer := NewBinarySerializer()
	rec, _ := NewStoredRecord("user1", 1, []protocol.Bin{{Name: "name", Value: "Alice"}})
	data, err := serializer.Serialize(rec)
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	var result StoredRecord
	if err := serializer.Deserialize(nil, &result); err == nil {
		t.Error("Expected error for empty data")
	}
	for cut := 1; cut < len(data); cut++ {
		if err := serializer.Deserialize(data[:cut], &result); err == nil {
			t.Errorf("Expected error for data truncated to %d bytes", cut)
		}
	}
	if err := serializer.Deserialize(append(bytes.Clone(data), 0), &result); err == nil {
		t.Error("Expected error for trailing bytes")
	}

	corrupt := bytes.Clone(data)
	corrupt[1+4] = 0xff // type byte of the user key
	if err := serializer.Deserialize(corrupt, &result); err == nil {
		t.Error("Expected error for unknown value type")
	}
}

// TestBinaryMapIsDeterministic tests that map bins always serialize to the same bytes
func TestBinaryMapIsDeterministic(t *testing.T) {
	serializer := NewBinarySerializer()
	m := map[string]any{}
	for _, k := range []string{"z", "a", "m", "b", "y"} {
		m[k] = k
	}
	rec, _ := NewStoredRecord(nil, 1, []protocol.Bin{{Name: "m", Value: m}})
	first, _ := serializer.Serialize(rec)
	for i := 0; i < 10; i++ {
		again, _ := serializer.Serialize(rec)
		if !bytes.Equal(first, again) {
			t.Fatal("Map serialization is not deterministic")
		}
	}
}

// TestMerge tests the write semantics of StoredRecord.Merge
func TestMerge(t *testing.T) {
	rec, _ := NewStoredRecord("k", 1, []protocol.Bin{{Name: "a", Value: int64(1)}, {Name: "b", Value: "x"}})
	if err := rec.Merge([]protocol.Bin{{Name: "b", Value: nil}, {Name: "c", Value: 2.5}, {Name: "a", Value: int64(9)}}); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	want := []protocol.Bin{{Name: "a", Value: int64(9)}, {Name: "c", Value: 2.5}}
	if got := rec.ProtocolBins(nil); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %+v, got %+v", want, got)
	}
	if got := rec.ProtocolBins([]string{"c"}); len(got) != 1 || got[0].Name != "c" {
		t.Errorf("Filter not applied: %+v", got)
	}
}

// TestUnsupportedValue tests that unknown Go types are rejected with a parameter error
func TestUnsupportedValue(t *testing.T) {
	_, err := NewStoredRecord("k", 1, []protocol.Bin{{Name: "c", Value: make(chan int)}})
	if protocol.CodeOf(err) != protocol.ResultParameter {
		t.Errorf("Expected parameter error, got %v", err)
	}
	if _, err := NewCompressed(NewBinarySerializer(), "brotli"); err == nil {
		t.Error("Expected error for unknown compression")
	}
}

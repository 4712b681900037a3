// Package serializer encodes the records kept by the embedded store. It defines a common
// interface and multiple implementations with different size and speed trade offs.
//
// Key Components:
//
//   - IRecordSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A flag byte marks which of generation,
//     user key and bins are present, values are tagged with a type byte.
//
//   - jsonSerializerImpl: JSON encoding (goccy/go-json), useful to inspect the store.
//
//   - gobSerializerImpl: Go's gob encoding, mainly for comparison.
//
//   - NewCompressed: wraps any serializer with zstd or lz4 compression.
//
// Values are stored as StoredValue so that every format keeps the difference between ints
// and floats and between strings and blobs.
//
// Thread Safety:
//
//	All serializer implementations are safe for concurrent use across multiple goroutines.
//
// Usage:
//
//	s, err := serializer.NewCompressed(serializer.NewBinarySerializer(), "zstd")
//	data, err := s.Serialize(rec)
//	var restored serializer.StoredRecord
//	err = s.Deserialize(data, &restored)
package serializer

package serializer

// IRecordSerializer is the interface for all record serializers of the embedded store
type IRecordSerializer interface {
	// Serialize serializes a StoredRecord into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(rec StoredRecord) ([]byte, error)
	// Deserialize deserializes a byte array into a StoredRecord
	// It takes a byte array and a pointer to a StoredRecord as parameters
	// It returns an error if any
	Deserialize(b []byte, rec *StoredRecord) error
}

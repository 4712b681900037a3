package serializer

import (
	"github.com/goccy/go-json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRecordSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRecordSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRecordSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(rec StoredRecord) ([]byte, error) {
	return json.Marshal(rec)
}

func (j jsonSerializerImpl) Deserialize(b []byte, rec *StoredRecord) error {
	*rec = StoredRecord{}
	return json.Unmarshal(b, rec)
}

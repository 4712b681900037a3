package memory

import (
	"fmt"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/common"
	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol/serializer"
)

// NewSerializer returns the record serializer for a name (binary, json, gob) wrapped with the
// given compression (none, zstd, lz4)
func NewSerializer(name, compression string) (serializer.IRecordSerializer, error) {
	var base serializer.IRecordSerializer
	switch name {
	case "", "binary":
		base = serializer.NewBinarySerializer()
	case "json":
		base = serializer.NewJSONSerializer()
	case "gob":
		base = serializer.NewGOBSerializer()
	default:
		return nil, fmt.Errorf("unknown serializer %q, must be one of binary, json, gob", name)
	}
	return serializer.NewCompressed(base, compression)
}

// NewFromConfig opens a store for the client configuration
func NewFromConfig(cfg common.StoreConfig) (*Client, error) {
	s, err := NewSerializer(cfg.Serializer, cfg.Compression)
	if err != nil {
		return nil, err
	}
	return New(map[string]interface{}{
		"path":        cfg.DataDir,
		"InMemory":    cfg.InMemory,
		"Serializer":  s,
		"ClusterName": cfg.ClusterName,
	})
}

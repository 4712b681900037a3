package serializer

import (
	"fmt"
	"sort"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
)

// ValueType tags the kind of a StoredValue
type ValueType uint8

const (
	TypeNil ValueType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeString
	TypeBytes
	TypeList
	TypeMap
)

// StoredValue is a bin value in a form every serializer can round trip without losing
// its type (json would turn blobs into strings and ints into floats otherwise)
type StoredValue struct {
	Type  ValueType              `json:"t"`
	Bool  bool                   `json:"b,omitempty"`
	Int   int64                  `json:"i,omitempty"`
	Float float64                `json:"f,omitempty"`
	Str   string                 `json:"s,omitempty"`
	Bytes []byte                 `json:"y,omitempty"`
	List  []StoredValue          `json:"l,omitempty"`
	Map   map[string]StoredValue `json:"m,omitempty"`
}

// StoredBin is a named StoredValue
type StoredBin struct {
	Name  string      `json:"n"`
	Value StoredValue `json:"v"`
}

// StoredRecord is what the embedded store keeps per key. Expiration is handled by the
// store itself.
type StoredRecord struct {
	Generation uint32      `json:"gen"`
	UserKey    StoredValue `json:"key"`
	Bins       []StoredBin `json:"bins"`
}

// --------------------------------------------------------------------------
// Conversion from and to protocol values
// --------------------------------------------------------------------------

// EncodeValue converts a bin value. Ints of every width become TypeInt, float32 becomes
// TypeFloat. Other types are rejected with a parameter error.
func EncodeValue(v any) (StoredValue, error) {
	switch x := v.(type) {
	case nil:
		return StoredValue{Type: TypeNil}, nil
	case bool:
		return StoredValue{Type: TypeBool, Bool: x}, nil
	case int:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case int8:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case int16:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case int32:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case int64:
		return StoredValue{Type: TypeInt, Int: x}, nil
	case uint8:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case uint16:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case uint32:
		return StoredValue{Type: TypeInt, Int: int64(x)}, nil
	case float32:
		return StoredValue{Type: TypeFloat, Float: float64(x)}, nil
	case float64:
		return StoredValue{Type: TypeFloat, Float: x}, nil
	case string:
		return StoredValue{Type: TypeString, Str: x}, nil
	case []byte:
		return StoredValue{Type: TypeBytes, Bytes: append([]byte(nil), x...)}, nil
	case []any:
		list := make([]StoredValue, len(x))
		for i, e := range x {
			sv, err := EncodeValue(e)
			if err != nil {
				return StoredValue{}, err
			}
			list[i] = sv
		}
		return StoredValue{Type: TypeList, List: list}, nil
	case map[string]any:
		m := make(map[string]StoredValue, len(x))
		for k, e := range x {
			sv, err := EncodeValue(e)
			if err != nil {
				return StoredValue{}, err
			}
			m[k] = sv
		}
		return StoredValue{Type: TypeMap, Map: m}, nil
	}
	return StoredValue{}, protocol.NewError(protocol.ResultParameter, fmt.Sprintf("unsupported bin value type %T", v))
}

// Decode converts the value back to the protocol representation (see protocol.Bin)
func (v StoredValue) Decode() any {
	switch v.Type {
	case TypeBool:
		return v.Bool
	case TypeInt:
		return v.Int
	case TypeFloat:
		return v.Float
	case TypeString:
		return v.Str
	case TypeBytes:
		if v.Bytes == nil {
			return []byte{}
		}
		return v.Bytes
	case TypeList:
		list := make([]any, len(v.List))
		for i, e := range v.List {
			list[i] = e.Decode()
		}
		return list
	case TypeMap:
		m := make(map[string]any, len(v.Map))
		for k, e := range v.Map {
			m[k] = e.Decode()
		}
		return m
	}
	return nil
}

// NewStoredRecord builds a record from protocol bins. Nil bins are skipped.
func NewStoredRecord(userKey any, generation uint32, bins []protocol.Bin) (StoredRecord, error) {
	key, err := EncodeValue(userKey)
	if err != nil {
		return StoredRecord{}, err
	}
	rec := StoredRecord{Generation: generation, UserKey: key}
	if err := rec.Merge(bins); err != nil {
		return StoredRecord{}, err
	}
	return rec, nil
}

// Merge applies a write: existing bins are replaced, new bins appended and bins set to nil
// are removed
func (r *StoredRecord) Merge(bins []protocol.Bin) error {
	for _, b := range bins {
		idx := -1
		for i := range r.Bins {
			if r.Bins[i].Name == b.Name {
				idx = i
				break
			}
		}
		if b.Value == nil {
			if idx >= 0 {
				r.Bins = append(r.Bins[:idx], r.Bins[idx+1:]...)
			}
			continue
		}
		sv, err := EncodeValue(b.Value)
		if err != nil {
			return err
		}
		if idx >= 0 {
			r.Bins[idx].Value = sv
		} else {
			r.Bins = append(r.Bins, StoredBin{Name: b.Name, Value: sv})
		}
	}
	return nil
}

// ProtocolBins returns the bins in stored order. A non empty filter restricts the result to
// the named bins.
func (r StoredRecord) ProtocolBins(filter []string) []protocol.Bin {
	bins := make([]protocol.Bin, 0, len(r.Bins))
	for _, b := range r.Bins {
		if len(filter) > 0 && !contains(filter, b.Name) {
			continue
		}
		bins = append(bins, protocol.Bin{Name: b.Name, Value: b.Value.Decode()})
	}
	return bins
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// sortedKeys returns the keys of a map value in a stable order
func sortedKeys(m map[string]StoredValue) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

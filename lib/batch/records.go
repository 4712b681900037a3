package batch

import (
	"fmt"
	"strings"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
)

// Reserved fields of the write path
const (
	KeyField       = "_key"
	NamespaceField = "_namespace"
	SetField       = "_set"
)

// ToRecords turns a row buffer into records, the reverse of Materialize. The user key is
// read from the _key field, _namespace and _set override the given defaults per row. Other
// fields starting with "_" are not written. Subarray fields become blobs, fixed bytes
// become strings without trailing NULs.
func ToRecords(rows []byte, layout *Layout, namespace, set string) ([]protocol.Record, error) {
	keyField, ok := layout.Field(KeyField)
	if !ok {
		return nil, &SchemaError{Field: KeyField, Reason: "field is required to build keys"}
	}
	if keyField.Kind == KindFloat || keyField.Kind == KindSubarray {
		return nil, &SchemaError{Field: KeyField, Reason: fmt.Sprintf("%s cannot be used as key", keyField.Kind)}
	}
	if len(rows)%layout.stride != 0 {
		return nil, fmt.Errorf("batch: buffer of %d bytes is not a multiple of the stride %d", len(rows), layout.stride)
	}
	nsField, hasNs := layout.Field(NamespaceField)
	setField, hasSet := layout.Field(SetField)

	n := len(rows) / layout.stride
	records := make([]protocol.Record, 0, n)
	for i := 0; i < n; i++ {
		row := rows[i*layout.stride : (i+1)*layout.stride]

		ns, s := namespace, set
		if hasNs {
			if v := string(trimNul(cell(row, nsField))); v != "" {
				ns = v
			}
		}
		if hasSet {
			if v := string(trimNul(cell(row, setField))); v != "" {
				s = v
			}
		}

		key, err := protocol.NewKey(ns, s, keyValue(row, keyField))
		if err != nil {
			return nil, &DecodeError{Row: i, Field: KeyField, Reason: err.Error()}
		}

		rec := protocol.Record{Key: key}
		for _, f := range layout.fields {
			if strings.HasPrefix(f.Name, "_") {
				continue
			}
			rec.Bins = append(rec.Bins, protocol.Bin{Name: f.Name, Value: binValue(row, f)})
		}
		records = append(records, rec)
	}
	return records, nil
}

func cell(row []byte, f FieldLayout) []byte {
	return row[f.Offset : f.Offset+f.Size]
}

func keyValue(row []byte, f FieldLayout) any {
	src := cell(row, f)
	switch f.Kind {
	case KindFixedBytes:
		return string(trimNul(src))
	case KindInt:
		return signExtend(getUint(src, f.Width), f.Width)
	case KindUint:
		return int64(getUint(src, f.Width))
	default:
		return append([]byte(nil), src...)
	}
}

func binValue(row []byte, f FieldLayout) any {
	src := cell(row, f)
	switch f.Kind {
	case KindUint:
		// the database only stores signed integers
		return int64(getUint(src, f.Width))
	case KindFixedBytes:
		return string(trimNul(src))
	case KindSubarray:
		return append([]byte(nil), src...)
	default:
		return readValue(src, f)
	}
}

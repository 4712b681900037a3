package batch

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// --------------------------------------------------------------------------
// Field kinds
// --------------------------------------------------------------------------

// Kind is the primitive type a field is decoded into
type Kind uint8

const (
	KindInvalid Kind = iota
	KindInt
	KindUint
	KindFloat
	KindFixedBytes
	KindRawBytes
	KindSubarray
	// KindText and KindObject exist so callers can describe such fields; Compile rejects them
	KindText
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "signed_int"
	case KindUint:
		return "unsigned_int"
	case KindFloat:
		return "float"
	case KindFixedBytes:
		return "fixed_bytes"
	case KindRawBytes:
		return "raw_bytes"
	case KindSubarray:
		return "fixed_subarray"
	case KindText:
		return "text"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// --------------------------------------------------------------------------
// Fields
// --------------------------------------------------------------------------

// Field is one entry of a schema. For subarrays Width is the element width.
type Field struct {
	Name  string
	Kind  Kind
	Width int
	Elem  Kind
	Count int
}

// Schema is the ordered list of fields of a row
type Schema []Field

func IntField(name string, width int) Field {
	return Field{Name: name, Kind: KindInt, Width: width}
}

func UintField(name string, width int) Field {
	return Field{Name: name, Kind: KindUint, Width: width}
}

func FloatField(name string, width int) Field {
	return Field{Name: name, Kind: KindFloat, Width: width}
}

// BytesField is a fixed length byte string, truncated or zero padded
func BytesField(name string, width int) Field {
	return Field{Name: name, Kind: KindFixedBytes, Width: width}
}

// RawField copies a blob verbatim up to width bytes
func RawField(name string, width int) Field {
	return Field{Name: name, Kind: KindRawBytes, Width: width}
}

// SubarrayField is a packed array of count elements, stored in the database as one blob
func SubarrayField(name string, elem Kind, elemWidth, count int) Field {
	return Field{Name: name, Kind: KindSubarray, Width: elemWidth, Elem: elem, Count: count}
}

// TextField is a variable length text field. It is not supported by the batch engine.
func TextField(name string) Field {
	return Field{Name: name, Kind: KindText}
}

// Size is the number of bytes the field occupies in a row
func (f Field) Size() int {
	if f.Kind == KindSubarray {
		return f.Width * f.Count
	}
	return f.Width
}

// TypeString renders the field in the compact notation accepted by ParseSchema
func (f Field) TypeString() string {
	switch f.Kind {
	case KindInt:
		return "i" + strconv.Itoa(f.Width)
	case KindUint:
		return "u" + strconv.Itoa(f.Width)
	case KindFloat:
		return "f" + strconv.Itoa(f.Width)
	case KindFixedBytes:
		return "S" + strconv.Itoa(f.Width)
	case KindRawBytes:
		return "V" + strconv.Itoa(f.Width)
	case KindSubarray:
		elem := Field{Kind: f.Elem, Width: f.Width}
		return fmt.Sprintf("(%d)%s", f.Count, elem.TypeString())
	case KindText:
		return "U"
	case KindObject:
		return "O"
	default:
		return "?"
	}
}

// --------------------------------------------------------------------------
// Parsing
// --------------------------------------------------------------------------

// ParseSchema parses "name:type,name:type". Types are i1..i8, u1..u8, f2/f4/f8 for numbers,
// S<n> for fixed bytes, V<n> for raw bytes, (<count>)<type> for subarrays, U and O for text and
// object fields (which Compile rejects).
func ParseSchema(s string) (Schema, error) {
	var schema Schema
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, typ, ok := strings.Cut(part, ":")
		if !ok {
			return nil, &SchemaError{Field: part, Reason: "expected name:type"}
		}
		f, err := ParseField(strings.TrimSpace(name), strings.TrimSpace(typ))
		if err != nil {
			return nil, err
		}
		schema = append(schema, f)
	}
	return schema, nil
}

// ParseField parses a single field type, see ParseSchema
func ParseField(name, typ string) (Field, error) {
	typ = strings.TrimLeft(typ, "<|=")
	if typ == "" {
		return Field{}, &SchemaError{Field: name, Reason: "empty type"}
	}

	if strings.HasPrefix(typ, "(") {
		end := strings.Index(typ, ")")
		if end < 0 {
			return Field{}, &SchemaError{Field: name, Reason: fmt.Sprintf("unterminated subarray count in %q", typ)}
		}
		count, err := strconv.Atoi(typ[1:end])
		if err != nil {
			return Field{}, &SchemaError{Field: name, Reason: fmt.Sprintf("invalid subarray count in %q", typ)}
		}
		elem, err := ParseField(name, typ[end+1:])
		if err != nil {
			return Field{}, err
		}
		return SubarrayField(name, elem.Kind, elem.Width, count), nil
	}

	var kind Kind
	switch typ[0] {
	case 'i':
		kind = KindInt
	case 'u':
		kind = KindUint
	case 'f':
		kind = KindFloat
	case 'S':
		kind = KindFixedBytes
	case 'V':
		kind = KindRawBytes
	case 'U':
		return Field{Name: name, Kind: KindText}, nil
	case 'O':
		return Field{Name: name, Kind: KindObject}, nil
	default:
		return Field{}, &SchemaError{Field: name, Reason: fmt.Sprintf("unknown type %q", typ)}
	}

	width, err := strconv.Atoi(typ[1:])
	if err != nil {
		return Field{}, &SchemaError{Field: name, Reason: fmt.Sprintf("invalid width in %q", typ)}
	}
	return Field{Name: name, Kind: kind, Width: width}, nil
}

type yamlSchema struct {
	Fields []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"fields"`
}

// LoadSchemaYAML reads a schema document of the form
//
//	fields:
//	  - name: age
//	    type: u4
func LoadSchemaYAML(data []byte) (Schema, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("batch: invalid schema document: %w", err)
	}
	schema := make(Schema, 0, len(doc.Fields))
	for _, f := range doc.Fields {
		field, err := ParseField(f.Name, f.Type)
		if err != nil {
			return nil, err
		}
		schema = append(schema, field)
	}
	return schema, nil
}

package batch

import (
	"fmt"
	"strings"
)

// FieldLayout is a field with its position inside a row
type FieldLayout struct {
	Field
	Offset int
	Size   int
}

// Layout is a compiled schema: packed fields, no alignment padding
type Layout struct {
	fields []FieldLayout
	byName map[string]int
	stride int
}

// Compile validates the schema and computes the packed row layout. Every error is a
// *SchemaError.
func Compile(schema Schema) (*Layout, error) {
	if len(schema) == 0 {
		return nil, &SchemaError{Reason: "schema has no fields"}
	}

	l := &Layout{
		fields: make([]FieldLayout, 0, len(schema)),
		byName: make(map[string]int, len(schema)),
	}
	for _, f := range schema {
		if f.Name == "" {
			return nil, &SchemaError{Reason: "field without name"}
		}
		if _, dup := l.byName[f.Name]; dup {
			return nil, &SchemaError{Field: f.Name, Reason: "duplicate field name"}
		}
		if err := validateField(f); err != nil {
			return nil, err
		}

		l.byName[f.Name] = len(l.fields)
		l.fields = append(l.fields, FieldLayout{Field: f, Offset: l.stride, Size: f.Size()})
		l.stride += f.Size()
	}
	return l, nil
}

// MustCompile is like Compile but panics on error
func MustCompile(schema Schema) *Layout {
	l, err := Compile(schema)
	if err != nil {
		panic(err)
	}
	return l
}

func validateField(f Field) error {
	switch f.Kind {
	case KindInt, KindUint, KindFloat:
		return validateNumber(f.Name, f.Kind, f.Width)
	case KindFixedBytes, KindRawBytes:
		if f.Width < 1 {
			return &SchemaError{Field: f.Name, Reason: fmt.Sprintf("%s width must be at least 1, got %d", f.Kind, f.Width)}
		}
		return nil
	case KindSubarray:
		if f.Count < 1 {
			return &SchemaError{Field: f.Name, Reason: fmt.Sprintf("subarray count must be positive, got %d", f.Count)}
		}
		switch f.Elem {
		case KindInt, KindUint, KindFloat:
			return validateNumber(f.Name, f.Elem, f.Width)
		default:
			return &SchemaError{Field: f.Name, Reason: fmt.Sprintf("unsupported subarray element kind %s", f.Elem)}
		}
	case KindText, KindObject:
		return &SchemaError{Field: f.Name, Reason: fmt.Sprintf("%s fields are not supported, use fixed_bytes", f.Kind)}
	default:
		return &SchemaError{Field: f.Name, Reason: "unknown field kind"}
	}
}

func validateNumber(name string, kind Kind, width int) error {
	switch kind {
	case KindFloat:
		if width == 2 || width == 4 || width == 8 {
			return nil
		}
	default:
		if width == 1 || width == 2 || width == 4 || width == 8 {
			return nil
		}
	}
	return &SchemaError{Field: name, Reason: fmt.Sprintf("invalid %s width %d", kind, width)}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Stride is the size of one row in bytes
func (l *Layout) Stride() int {
	return l.stride
}

// Fields returns the fields in schema order
func (l *Layout) Fields() []FieldLayout {
	return l.fields
}

// Field looks up a field by name
func (l *Layout) Field(name string) (FieldLayout, bool) {
	i, ok := l.byName[name]
	if !ok {
		return FieldLayout{}, false
	}
	return l.fields[i], true
}

// Schema returns the schema the layout was compiled from
func (l *Layout) Schema() Schema {
	schema := make(Schema, len(l.fields))
	for i, f := range l.fields {
		schema[i] = f.Field
	}
	return schema
}

// String renders the layout like "age:u4@0,name:S8@4 (stride 12)"
func (l *Layout) String() string {
	var sb strings.Builder
	for i, f := range l.fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%s:%s@%d", f.Name, f.TypeString(), f.Offset)
	}
	fmt.Fprintf(&sb, " (stride %d)", l.stride)
	return sb.String()
}

// --------------------------------------------------------------------------
// Row buffers
// --------------------------------------------------------------------------

// NewRows allocates a zeroed buffer for n rows
func (l *Layout) NewRows(n int) []byte {
	return make([]byte, n*l.stride)
}

// Put stores v in field name of row i, using the same conversions as the read path
func (l *Layout) Put(rows []byte, i int, name string, v any) error {
	f, ok := l.Field(name)
	if !ok {
		return &SchemaError{Field: name, Reason: "no such field"}
	}
	if err := l.checkRow(rows, i); err != nil {
		return err
	}
	start := i*l.stride + f.Offset
	if reason := writeValue(rows[start:start+f.Size], f, v); reason != "" {
		return &DecodeError{Row: i, Field: name, Reason: reason}
	}
	return nil
}

// Get reads field name of row i, see readValue for the returned types
func (l *Layout) Get(rows []byte, i int, name string) (any, error) {
	f, ok := l.Field(name)
	if !ok {
		return nil, &SchemaError{Field: name, Reason: "no such field"}
	}
	if err := l.checkRow(rows, i); err != nil {
		return nil, err
	}
	start := i*l.stride + f.Offset
	return readValue(rows[start:start+f.Size], f), nil
}

func (l *Layout) checkRow(rows []byte, i int) error {
	if len(rows)%l.stride != 0 {
		return fmt.Errorf("batch: buffer of %d bytes is not a multiple of the stride %d", len(rows), l.stride)
	}
	if i < 0 || (i+1)*l.stride > len(rows) {
		return fmt.Errorf("batch: row %d out of range", i)
	}
	return nil
}

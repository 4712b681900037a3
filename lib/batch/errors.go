package batch

import "fmt"

// SchemaError is returned for schemas the engine cannot decode into. It is always raised
// before any request is sent.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("batch: invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("batch: invalid schema field %q: %s", e.Field, e.Reason)
}

// DecodeError is returned if a bin value cannot be stored in its field, for example a
// subarray blob of the wrong length
type DecodeError struct {
	Row    int
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("batch: cannot decode field %q of row %d: %s", e.Field, e.Row, e.Reason)
}

package batch

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Metadata columns appended to every arrow export
const (
	GenerationColumn = "_generation"
	TTLColumn        = "_ttl"
	CodeColumn       = "_code"
)

// ArrowSchema maps the layout to an arrow schema. Fields are nullable; rows without a record
// are exported as nulls.
func (l *Layout) ArrowSchema() *arrow.Schema {
	fields := make([]arrow.Field, 0, len(l.fields)+3)
	for _, f := range l.fields {
		fields = append(fields, arrow.Field{Name: f.Name, Type: arrowType(f.Field), Nullable: true})
	}
	fields = append(fields,
		arrow.Field{Name: GenerationColumn, Type: arrow.PrimitiveTypes.Uint32},
		arrow.Field{Name: TTLColumn, Type: arrow.PrimitiveTypes.Uint32},
		arrow.Field{Name: CodeColumn, Type: arrow.PrimitiveTypes.Int32},
	)
	return arrow.NewSchema(fields, nil)
}

func arrowType(f Field) arrow.DataType {
	switch f.Kind {
	case KindFixedBytes, KindRawBytes:
		return &arrow.FixedSizeBinaryType{ByteWidth: f.Width}
	case KindSubarray:
		return arrow.FixedSizeListOf(int32(f.Count), numberType(f.Elem, f.Width))
	default:
		return numberType(f.Kind, f.Width)
	}
}

func numberType(kind Kind, width int) arrow.DataType {
	switch kind {
	case KindInt:
		switch width {
		case 1:
			return arrow.PrimitiveTypes.Int8
		case 2:
			return arrow.PrimitiveTypes.Int16
		case 4:
			return arrow.PrimitiveTypes.Int32
		}
		return arrow.PrimitiveTypes.Int64
	case KindUint:
		switch width {
		case 1:
			return arrow.PrimitiveTypes.Uint8
		case 2:
			return arrow.PrimitiveTypes.Uint16
		case 4:
			return arrow.PrimitiveTypes.Uint32
		}
		return arrow.PrimitiveTypes.Uint64
	}
	switch width {
	case 2:
		return arrow.FixedWidthTypes.Float16
	case 4:
		return arrow.PrimitiveTypes.Float32
	}
	return arrow.PrimitiveTypes.Float64
}

// ToArrow copies the result into an arrow record. The caller releases the record.
func (r *Result) ToArrow(mem memory.Allocator) (arrow.Record, error) {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	schema := r.layout.ArrowSchema()
	rb := array.NewRecordBuilder(mem, schema)
	defer rb.Release()

	nFields := len(r.layout.fields)
	for i := 0; i < r.Len(); i++ {
		row := r.Row(i)
		found := r.Found(i)
		for j, f := range r.layout.fields {
			b := rb.Field(j)
			if !found {
				b.AppendNull()
				continue
			}
			if err := appendCell(b, f, cell(row, f)); err != nil {
				return nil, err
			}
		}
		gen, ttl := r.RowMeta(i)
		rb.Field(nFields).(*array.Uint32Builder).Append(gen)
		rb.Field(nFields + 1).(*array.Uint32Builder).Append(ttl)
		rb.Field(nFields + 2).(*array.Int32Builder).Append(r.Codes[i])
	}
	return rb.NewRecord(), nil
}

func appendCell(b array.Builder, f FieldLayout, src []byte) error {
	switch bb := b.(type) {
	case *array.FixedSizeBinaryBuilder:
		bb.Append(src)
		return nil
	case *array.FixedSizeListBuilder:
		bb.Append(true)
		values := bb.ValueBuilder()
		for k := 0; k < f.Count; k++ {
			if err := appendNumber(values, src[k*f.Width:(k+1)*f.Width]); err != nil {
				return err
			}
		}
		return nil
	default:
		return appendNumber(b, src)
	}
}

func appendNumber(b array.Builder, src []byte) error {
	switch bb := b.(type) {
	case *array.Int8Builder:
		bb.Append(int8(src[0]))
	case *array.Int16Builder:
		bb.Append(int16(binary.LittleEndian.Uint16(src)))
	case *array.Int32Builder:
		bb.Append(int32(binary.LittleEndian.Uint32(src)))
	case *array.Int64Builder:
		bb.Append(int64(binary.LittleEndian.Uint64(src)))
	case *array.Uint8Builder:
		bb.Append(src[0])
	case *array.Uint16Builder:
		bb.Append(binary.LittleEndian.Uint16(src))
	case *array.Uint32Builder:
		bb.Append(binary.LittleEndian.Uint32(src))
	case *array.Uint64Builder:
		bb.Append(binary.LittleEndian.Uint64(src))
	case *array.Float16Builder:
		bb.Append(float16.FromBits(binary.LittleEndian.Uint16(src)))
	case *array.Float32Builder:
		bb.Append(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case *array.Float64Builder:
		bb.Append(math.Float64frombits(binary.LittleEndian.Uint64(src)))
	default:
		return fmt.Errorf("batch: no arrow conversion for builder %T", b)
	}
	return nil
}

// WriteArrow writes the result as an arrow IPC file
func (r *Result) WriteArrow(w io.Writer) error {
	mem := memory.NewGoAllocator()
	rec, err := r.ToArrow(mem)
	if err != nil {
		return err
	}
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("batch: cannot create arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return fmt.Errorf("batch: cannot write arrow record: %w", err)
	}
	return fw.Close()
}

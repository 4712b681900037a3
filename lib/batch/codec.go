package batch

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow/float16"
	"github.com/cstockton/go-conv"
)

// All numbers are stored little endian.

// writeValue stores v into dst, which is exactly f.Size bytes long. It returns a reason
// string if v cannot be stored; nil values leave dst untouched.
func writeValue(dst []byte, f FieldLayout, v any) string {
	if v == nil {
		return ""
	}
	switch f.Kind {
	case KindInt, KindUint:
		n, ok := toInt(v)
		if !ok {
			return fmt.Sprintf("cannot store %T in %s field", v, f.Kind)
		}
		putUint(dst, f.Width, n)
	case KindFloat:
		x, ok := toFloat(v)
		if !ok {
			return fmt.Sprintf("cannot store %T in float field", v)
		}
		putFloat(dst, f.Width, x)
	case KindFixedBytes, KindRawBytes:
		b, ok := toBytes(v)
		if !ok {
			return fmt.Sprintf("cannot store %T in %s field", v, f.Kind)
		}
		n := copy(dst, b)
		clear(dst[n:])
	case KindSubarray:
		b, ok := toBytes(v)
		if !ok {
			return fmt.Sprintf("cannot store %T in subarray field, expected a blob", v)
		}
		if len(b) != len(dst) {
			return fmt.Sprintf("subarray blob has %d bytes, expected %d", len(b), len(dst))
		}
		copy(dst, b)
	default:
		return fmt.Sprintf("unsupported field kind %s", f.Kind)
	}
	return ""
}

// readValue is the inverse of writeValue. Signed ints come back as int64, unsigned as
// uint64, floats as float64, fixed bytes with trailing NULs trimmed, raw bytes verbatim and
// subarrays as []int64, []uint64 or []float64.
func readValue(src []byte, f FieldLayout) any {
	switch f.Kind {
	case KindInt:
		return signExtend(getUint(src, f.Width), f.Width)
	case KindUint:
		return getUint(src, f.Width)
	case KindFloat:
		return getFloat(src, f.Width)
	case KindFixedBytes:
		return append([]byte(nil), trimNul(src)...)
	case KindRawBytes:
		return append([]byte(nil), src...)
	case KindSubarray:
		switch f.Elem {
		case KindInt:
			out := make([]int64, f.Count)
			for i := range out {
				out[i] = signExtend(getUint(src[i*f.Width:], f.Width), f.Width)
			}
			return out
		case KindUint:
			out := make([]uint64, f.Count)
			for i := range out {
				out[i] = getUint(src[i*f.Width:], f.Width)
			}
			return out
		default:
			out := make([]float64, f.Count)
			for i := range out {
				out[i] = getFloat(src[i*f.Width:], f.Width)
			}
			return out
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Coercion
// --------------------------------------------------------------------------

// toInt converts bins to the two's complement bit pattern of an integer. Floats are
// truncated, bools become 0 or 1.
func toInt(v any) (uint64, bool) {
	switch x := v.(type) {
	case int64:
		return uint64(x), true
	case int:
		return uint64(int64(x)), true
	case int32:
		return uint64(int64(x)), true
	case int16:
		return uint64(int64(x)), true
	case int8:
		return uint64(int64(x)), true
	case uint64:
		return x, true
	case uint32:
		return uint64(x), true
	case uint16:
		return uint64(x), true
	case uint8:
		return uint64(x), true
	case uint:
		return uint64(x), true
	case float64:
		return uint64(int64(x)), true
	case float32:
		return uint64(int64(x)), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string, []byte, []any, map[any]any, map[string]any:
		return 0, false
	}
	f, err := conv.Float64(v)
	if err != nil {
		return 0, false
	}
	return f, true
}

func toBytes(v any) ([]byte, bool) {
	switch x := v.(type) {
	case []byte:
		return x, true
	case string:
		return []byte(x), true
	}
	return nil, false
}

// --------------------------------------------------------------------------
// Fixed width primitives
// --------------------------------------------------------------------------

func putUint(dst []byte, width int, n uint64) {
	switch width {
	case 1:
		dst[0] = byte(n)
	case 2:
		binary.LittleEndian.PutUint16(dst, uint16(n))
	case 4:
		binary.LittleEndian.PutUint32(dst, uint32(n))
	case 8:
		binary.LittleEndian.PutUint64(dst, n)
	}
}

func getUint(src []byte, width int) uint64 {
	switch width {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(src))
	case 4:
		return uint64(binary.LittleEndian.Uint32(src))
	case 8:
		return binary.LittleEndian.Uint64(src)
	}
	return 0
}

func signExtend(n uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(n<<shift) >> shift
}

func putFloat(dst []byte, width int, x float64) {
	switch width {
	case 2:
		binary.LittleEndian.PutUint16(dst, float16.New(float32(x)).Uint16())
	case 4:
		binary.LittleEndian.PutUint32(dst, math.Float32bits(float32(x)))
	case 8:
		binary.LittleEndian.PutUint64(dst, math.Float64bits(x))
	}
}

func getFloat(src []byte, width int) float64 {
	switch width {
	case 2:
		return float64(float16.FromBits(binary.LittleEndian.Uint16(src)).Float32())
	case 4:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(src)))
	case 8:
		return math.Float64frombits(binary.LittleEndian.Uint64(src))
	}
	return 0
}

func trimNul(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == 0 {
		end--
	}
	return b[:end]
}

// --------------------------------------------------------------------------
// Subarray packing helpers
// --------------------------------------------------------------------------

// PackFloat32 encodes values as a blob suitable for a (n)f4 subarray field
func PackFloat32(values []float32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	return out
}

// PackFloat64 encodes values as a blob suitable for a (n)f8 subarray field
func PackFloat64(values []float64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], math.Float64bits(v))
	}
	return out
}

// PackInt64 encodes values as a blob suitable for a (n)i8 subarray field
func PackInt64(values []int64) []byte {
	out := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(out[8*i:], uint64(v))
	}
	return out
}

package serializer

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRecordSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRecordSerializer using a custom binary format:
//
//	flags(1) [generation(4)] [user key value] [bin count(4) {name len(2) name value}...]
//
// A value is a type byte followed by its payload, all numbers big endian.
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasGeneration byte = 1 << 0
	hasUserKey    byte = 1 << 1
	hasBins       byte = 1 << 2
)

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRecordSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(rec StoredRecord) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(rec))

	var flags byte = 0
	pos := 1 // Start after flags

	if rec.Generation > 0 {
		flags |= hasGeneration
		binary.BigEndian.PutUint32(result[pos:pos+4], rec.Generation)
		pos += 4
	}

	if rec.UserKey.Type != TypeNil {
		flags |= hasUserKey
		pos = putValue(result, pos, rec.UserKey)
	}

	if len(rec.Bins) > 0 {
		flags |= hasBins
		binary.BigEndian.PutUint32(result[pos:pos+4], uint32(len(rec.Bins)))
		pos += 4
		for _, bin := range rec.Bins {
			if len(bin.Name) > math.MaxUint16 {
				return nil, fmt.Errorf("bin name too long: %d bytes", len(bin.Name))
			}
			binary.BigEndian.PutUint16(result[pos:pos+2], uint16(len(bin.Name)))
			pos += 2
			pos += copy(result[pos:], bin.Name)
			pos = putValue(result, pos, bin.Value)
		}
	}

	// Set flags byte after knowing which fields are present
	result[0] = flags
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, rec *StoredRecord) error {
	// Check minimum size (flags)
	if len(data) < 1 {
		return fmt.Errorf("data too short for record header")
	}
	*rec = StoredRecord{}

	flags := data[0]
	r := &reader{data: data, pos: 1}

	if flags&hasGeneration != 0 {
		gen, err := r.readU32("generation")
		if err != nil {
			return err
		}
		rec.Generation = gen
	}

	if flags&hasUserKey != 0 {
		key, err := r.value()
		if err != nil {
			return err
		}
		rec.UserKey = key
	}

	if flags&hasBins != 0 {
		count, err := r.readU32("bin count")
		if err != nil {
			return err
		}
		rec.Bins = make([]StoredBin, 0, min(int(count), len(data)))
		for i := uint32(0); i < count; i++ {
			nameLen, err := r.readU16("bin name length")
			if err != nil {
				return err
			}
			name, err := r.bytes(int(nameLen), "bin name")
			if err != nil {
				return err
			}
			value, err := r.value()
			if err != nil {
				return err
			}
			rec.Bins = append(rec.Bins, StoredBin{Name: string(name), Value: value})
		}
	}

	if r.pos != len(data) {
		return fmt.Errorf("%d trailing bytes after record", len(data)-r.pos)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(rec StoredRecord) int {
	// 1 byte for flags
	size := 1
	if rec.Generation > 0 {
		size += 4
	}
	if rec.UserKey.Type != TypeNil {
		size += sizeValue(rec.UserKey)
	}
	if len(rec.Bins) > 0 {
		size += 4 // bin count
		for _, bin := range rec.Bins {
			size += 2 + len(bin.Name) + sizeValue(bin.Value)
		}
	}
	return size
}

func sizeValue(v StoredValue) int {
	// 1 byte for the type
	size := 1
	switch v.Type {
	case TypeBool:
		size += 1
	case TypeInt, TypeFloat:
		size += 8
	case TypeString:
		size += 4 + len(v.Str)
	case TypeBytes:
		size += 4 + len(v.Bytes)
	case TypeList:
		size += 4
		for _, e := range v.List {
			size += sizeValue(e)
		}
	case TypeMap:
		size += 4
		for k, e := range v.Map {
			size += 4 + len(k) + sizeValue(e)
		}
	}
	return size
}

// putValue writes v at pos and returns the position after it
func putValue(dst []byte, pos int, v StoredValue) int {
	dst[pos] = byte(v.Type)
	pos++
	switch v.Type {
	case TypeBool:
		if v.Bool {
			dst[pos] = 1
		} else {
			dst[pos] = 0
		}
		pos++
	case TypeInt:
		binary.BigEndian.PutUint64(dst[pos:pos+8], uint64(v.Int))
		pos += 8
	case TypeFloat:
		binary.BigEndian.PutUint64(dst[pos:pos+8], math.Float64bits(v.Float))
		pos += 8
	case TypeString:
		binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(v.Str)))
		pos += 4
		pos += copy(dst[pos:], v.Str)
	case TypeBytes:
		binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(v.Bytes)))
		pos += 4
		pos += copy(dst[pos:], v.Bytes)
	case TypeList:
		binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(v.List)))
		pos += 4
		for _, e := range v.List {
			pos = putValue(dst, pos, e)
		}
	case TypeMap:
		binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(v.Map)))
		pos += 4
		for _, k := range sortedKeys(v.Map) {
			binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(k)))
			pos += 4
			pos += copy(dst[pos:], k)
			pos = putValue(dst, pos, v.Map[k])
		}
	}
	return pos
}

// reader consumes a serialized record
type reader struct {
	data []byte
	pos  int
}

func (r *reader) bytes(n int, what string) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, fmt.Errorf("data too short for %s", what)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readU16(what string) (uint16, error) {
	b, err := r.bytes(2, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) readU32(what string) (uint32, error) {
	b, err := r.bytes(4, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) readU64(what string) (uint64, error) {
	b, err := r.bytes(8, what)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *reader) value() (StoredValue, error) {
	t, err := r.bytes(1, "value type")
	if err != nil {
		return StoredValue{}, err
	}
	v := StoredValue{Type: ValueType(t[0])}
	switch v.Type {
	case TypeNil:
	case TypeBool:
		b, err := r.bytes(1, "bool value")
		if err != nil {
			return v, err
		}
		v.Bool = b[0] != 0
	case TypeInt:
		n, err := r.readU64("int value")
		if err != nil {
			return v, err
		}
		v.Int = int64(n)
	case TypeFloat:
		n, err := r.readU64("float value")
		if err != nil {
			return v, err
		}
		v.Float = math.Float64frombits(n)
	case TypeString, TypeBytes:
		n, err := r.readU32("value length")
		if err != nil {
			return v, err
		}
		b, err := r.bytes(int(n), "value data")
		if err != nil {
			return v, err
		}
		if v.Type == TypeString {
			v.Str = string(b)
		} else {
			v.Bytes = append([]byte(nil), b...)
		}
	case TypeList:
		n, err := r.readU32("list length")
		if err != nil {
			return v, err
		}
		for i := uint32(0); i < n; i++ {
			e, err := r.value()
			if err != nil {
				return v, err
			}
			v.List = append(v.List, e)
		}
	case TypeMap:
		n, err := r.readU32("map length")
		if err != nil {
			return v, err
		}
		v.Map = make(map[string]StoredValue, min(int(n), len(r.data)))
		for i := uint32(0); i < n; i++ {
			kl, err := r.readU32("map key length")
			if err != nil {
				return v, err
			}
			k, err := r.bytes(int(kl), "map key")
			if err != nil {
				return v, err
			}
			e, err := r.value()
			if err != nil {
				return v, err
			}
			v.Map[string(k)] = e
		}
	default:
		return v, fmt.Errorf("unknown value type %d", v.Type)
	}
	return v, nil
}

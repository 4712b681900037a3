package batch

import (
	"encoding/binary"
	"fmt"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
)

// MetaSize is the size of one metadata row: generation (u32) then ttl (u32)
const MetaSize = 8

// Result is the output of a batch read. Rows, Meta and Codes share the input key order.
type Result struct {
	// Rows holds len(keys) packed rows of Layout().Stride() bytes, zero for missing records
	Rows []byte
	// Meta holds MetaSize bytes per row
	Meta []byte
	// Codes holds the result code per row, 0 on success
	Codes []int32
	// Index maps the user key (or the decimal row position if the key has none) to the row
	Index map[string]int

	layout *Layout
}

func newResult(layout *Layout, n int) *Result {
	return &Result{
		Rows:   layout.NewRows(n),
		Meta:   make([]byte, n*MetaSize),
		Codes:  make([]int32, n),
		Index:  make(map[string]int, n),
		layout: layout,
	}
}

// Len is the number of rows
func (r *Result) Len() int {
	return len(r.Codes)
}

func (r *Result) Layout() *Layout {
	return r.layout
}

// Row returns the bytes of row i. The slice aliases Rows.
func (r *Result) Row(i int) []byte {
	s := r.layout.stride
	return r.Rows[i*s : (i+1)*s]
}

// Found reports whether row i holds a record
func (r *Result) Found(i int) bool {
	return r.Codes[i] == int32(protocol.ResultOK)
}

// Code returns the result code of row i
func (r *Result) Code(i int) protocol.ResultCode {
	return protocol.ResultCode(r.Codes[i])
}

// RowMeta returns generation and ttl of row i. A ttl of math.MaxUint32 means never expires.
func (r *Result) RowMeta(i int) (generation, ttl uint32) {
	m := r.Meta[i*MetaSize : (i+1)*MetaSize]
	return binary.LittleEndian.Uint32(m[0:4]), binary.LittleEndian.Uint32(m[4:8])
}

// Value reads one field of row i, see Layout.Get for the returned types
func (r *Result) Value(i int, field string) (any, error) {
	return r.layout.Get(r.Rows, i, field)
}

// Lookup returns the row for a user key
func (r *Result) Lookup(key string) (int, bool) {
	i, ok := r.Index[key]
	return i, ok
}

func (r *Result) String() string {
	found := 0
	for _, c := range r.Codes {
		if c == 0 {
			found++
		}
	}
	return fmt.Sprintf("batch.Result{rows: %d, found: %d, layout: %s}", r.Len(), found, r.layout)
}

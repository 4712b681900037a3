package batch

import (
	"fmt"
	"math"
)

// ----------------------------------------------------------------------------
// Column statistics
// ----------------------------------------------------------------------------

// Stats summarizes the values of a numeric column
type Stats struct {
	Count        int     `json:"count"`
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
}

// NewStats computes the standard deviation, minimum, maximum and mean of values
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	// initialize min and max with the first value
	lo, hi := values[0], values[0]

	var sum float64
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	return Stats{
		Count: len(values),
		// population formula
		StdDeviation: math.Sqrt(sumSquaredDiffs / float64(len(values))),
		Min:          lo,
		Max:          hi,
		Mean:         mean,
	}
}

// ColumnStats returns statistics over a numeric field of all found rows. Subarray fields
// contribute every element.
func (r *Result) ColumnStats(field string) (Stats, error) {
	f, ok := r.layout.Field(field)
	if !ok {
		return Stats{}, fmt.Errorf("batch: unknown field %q", field)
	}
	kind := f.Kind
	if kind == KindSubarray {
		kind = f.Elem
	}
	if kind != KindInt && kind != KindUint && kind != KindFloat {
		return Stats{}, fmt.Errorf("batch: field %q is not numeric", field)
	}

	values := make([]float64, 0, r.Len())
	for i := 0; i < r.Len(); i++ {
		if !r.Found(i) {
			continue
		}
		v, err := r.Value(i, field)
		if err != nil {
			return Stats{}, err
		}
		values = appendNumbers(values, v)
	}
	return NewStats(values), nil
}

func appendNumbers(dst []float64, v any) []float64 {
	switch n := v.(type) {
	case int64:
		return append(dst, float64(n))
	case uint64:
		return append(dst, float64(n))
	case float64:
		return append(dst, n)
	case []int64:
		for _, e := range n {
			dst = append(dst, float64(e))
		}
	case []uint64:
		for _, e := range n {
			dst = append(dst, float64(e))
		}
	case []float64:
		dst = append(dst, n...)
	}
	return dst
}

package util

import (
	"testing"

	"github.com/KimSoungRyoul/aerospike-py-sub001/lib/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBins(t *testing.T) {
	bins, err := ParseBins([]string{"age=30", "score=1.5", "name=Alice", "ok=true", "id:str=42", "raw:hex=0102", "gone:nil="})
	require.NoError(t, err)
	assert.Equal(t, []protocol.Bin{
		{Name: "age", Value: int64(30)},
		{Name: "score", Value: 1.5},
		{Name: "name", Value: "Alice"},
		{Name: "ok", Value: true},
		{Name: "id", Value: "42"},
		{Name: "raw", Value: []byte{1, 2}},
		{Name: "gone", Value: nil},
	}, bins)

	_, err = ParseBins([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseBins([]string{"x:int=abc"})
	assert.Error(t, err)
	_, err = ParseBins([]string{"x:date=1"})
	assert.Error(t, err)
}

func TestInferValue(t *testing.T) {
	for raw, want := range map[string]any{
		"-7":    int64(-7),
		"007":   7.0,
		"1e3":   1000.0,
		"t":     "t",
		"False": "False",
		"":      "",
		"v1.2":  "v1.2",
	} {
		assert.Equal(t, want, inferValue(raw), "raw %q", raw)
	}
}

func TestWrapString(t *testing.T) {
	wrapped := WrapString("The timeout in seconds of a single operation (0 disables the timeout)")
	for _, line := range []string{"The timeout in seconds of a single operation (0", "disables the timeout)"} {
		assert.Contains(t, wrapped, line)
	}
}

func TestFormatRecord(t *testing.T) {
	rec := &protocol.Record{Generation: 2, TTL: -1, Bins: []protocol.Bin{{Name: "n", Value: int64(3)}, {Name: "s", Value: "x"}}}
	assert.Equal(t, "gen=2 ttl=-1 n=3 s=x", FormatRecord(rec))
	assert.Equal(t, "<nil>", FormatRecord(nil))
}

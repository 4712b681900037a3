package serializer

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression algorithms for NewCompressed
const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// NewCompressed wraps inner so that serialized records are compressed with algorithm
// (none, zstd or lz4). With none inner is returned unchanged.
func NewCompressed(inner IRecordSerializer, algorithm string) (IRecordSerializer, error) {
	switch algorithm {
	case "", CompressionNone:
		return inner, nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, err
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		return &zstdSerializerImpl{inner: inner, enc: enc, dec: dec}, nil
	case CompressionLZ4:
		return &lz4SerializerImpl{inner: inner, level: lz4.Fast}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q, must be one of none, zstd, lz4", algorithm)
	}
}

// zstdSerializerImpl compresses with zstd. EncodeAll and DecodeAll are safe for concurrent
// use, so one encoder and decoder are shared.
type zstdSerializerImpl struct {
	inner IRecordSerializer
	enc   *zstd.Encoder
	dec   *zstd.Decoder
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRecordSerializer)
// --------------------------------------------------------------------------

func (z *zstdSerializerImpl) Serialize(rec StoredRecord) ([]byte, error) {
	raw, err := z.inner.Serialize(rec)
	if err != nil {
		return nil, err
	}
	return z.enc.EncodeAll(raw, nil), nil
}

func (z *zstdSerializerImpl) Deserialize(b []byte, rec *StoredRecord) error {
	raw, err := z.dec.DecodeAll(b, nil)
	if err != nil {
		return fmt.Errorf("zstd: %w", err)
	}
	return z.inner.Deserialize(raw, rec)
}

// lz4SerializerImpl compresses with the lz4 frame format
type lz4SerializerImpl struct {
	inner IRecordSerializer
	level lz4.CompressionLevel
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRecordSerializer)
// --------------------------------------------------------------------------

func (l *lz4SerializerImpl) Serialize(rec StoredRecord) ([]byte, error) {
	raw, err := l.inner.Serialize(rec)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(l.level)); err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l *lz4SerializerImpl) Deserialize(b []byte, rec *StoredRecord) error {
	raw, err := io.ReadAll(lz4.NewReader(bytes.NewReader(b)))
	if err != nil {
		return fmt.Errorf("lz4: %w", err)
	}
	return l.inner.Deserialize(raw, rec)
}

package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// WriteFile compresses data per codec and stores it at location through f
//. Table and view
// metadata JSON are the only callers today, but the operation is
// content-agnostic.
func WriteFile(ctx context.Context, f FileIO, location Location, codec Codec, data []byte) error {
	encoded, err := compress(codec, data)
	if err != nil {
		return err
	}

	return f.Write(ctx, location, encoded)
}

func compress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone, "":
		return data, nil
	case CodecGzip:
		var buf bytes.Buffer

		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip metadata: %w", err)
		}

		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip metadata: %w", err)
		}

		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd metadata: %w", err)
		}
		defer enc.Close()

		return enc.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression codec %q", codec)
	}
}

// Decompress reverses compress, used when reading back a metadata file whose
// codec is inferred from its filename extension.
func Decompress(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone, "":
		return data, nil
	case CodecGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gunzip metadata: %w", err)
		}
		defer r.Close()

		buf, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("gunzip metadata: %w", err)
		}

		return buf, nil
	case CodecZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("zstd decode metadata: %w", err)
		}
		defer dec.Close()

		return dec.DecodeAll(nil, nil)
	default:
		return nil, fmt.Errorf("unsupported compression codec %q", codec)
	}
}

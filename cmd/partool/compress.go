package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	pgzip "github.com/klauspost/pgzip"
)

// Compression versions selectable for leaf payloads.
const (
	CompressionNone = 0
	CompressionGzip = 1
	CompressionZstd = 2
	CompressionS2   = 3

	defaultCompression = CompressionGzip
)

// PgzipConfig is the configuration for concurrent gzip operations.
type PgzipConfig struct {
	BlockSize        int // Approximate size of blocks (pgzip operations)
	BlockCount       int // Amount of blocks processing in parallel (pgzip operations)
	CompressionLevel int // Target level for compression (0: none to 9: highest)
}

func isKnownCompression(version int) bool {
	switch version {
	case CompressionNone, CompressionGzip, CompressionZstd, CompressionS2:
		return true
	}

	return false
}

// compress transforms data with the compression algorithm selected by version.
func compress(data []byte, version int, cfg *PgzipConfig) ([]byte, error) {
	switch version {
	case CompressionNone:
		return data, nil

	case CompressionGzip:
		var buf bytes.Buffer

		gw, err := pgzip.NewWriterLevel(&buf, cfg.CompressionLevel)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize gzip writer: %w", ErrCompressionFailure, err)
		}

		if err := gw.SetConcurrency(cfg.BlockSize, cfg.BlockCount); err != nil {
			return nil, fmt.Errorf("%w: failed to set gzip writer settings: %w", ErrCompressionFailure, err)
		}

		if _, err := gw.Write(data); err != nil {
			return nil, fmt.Errorf("%w: failed to gzip: %w", ErrCompressionFailure, err)
		}

		if err := gw.Close(); err != nil {
			return nil, fmt.Errorf("%w: failed to finalize gzip: %w", ErrCompressionFailure, err)
		}

		return buf.Bytes(), nil

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithZeroFrames(true))
		if err != nil {
			return nil, fmt.Errorf("%w: failed to initialize zstd encoder: %w", ErrCompressionFailure, err)
		}
		defer enc.Close()

		return enc.EncodeAll(data, nil), nil

	case CompressionS2:
		return s2.Encode(nil, data), nil
	}

	return nil, fmt.Errorf("%w: %w: %d", ErrCompressionFailure, ErrUnknownCompression, version)
}

// decompress reverses [compress] for the given version.
func decompress(payload []byte, version int) ([]byte, error) {
	switch version {
	case CompressionNone:
		return payload, nil

	case CompressionGzip:
		gr, err := pgzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gzip reader: %w", err)
		}
		defer gr.Close()

		data, err := io.ReadAll(gr)
		if err != nil {
			return nil, fmt.Errorf("failed to gunzip: %w", err)
		}

		return data, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize zstd decoder: %w", err)
		}
		defer dec.Close()

		data, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decode zstd: %w", err)
		}

		return data, nil

	case CompressionS2:
		data, err := s2.Decode(nil, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode s2: %w", err)
		}

		return data, nil
	}

	return nil, fmt.Errorf("%w: %d", ErrUnknownCompression, version)
}

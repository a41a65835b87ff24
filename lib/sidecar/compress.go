// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to the payload before
// erasure encoding. The tag is stored in the sidecar; changing a
// value breaks existing sidecars.
type Compression string

const (
	// CompressionNone stores the payload bytes as-is. The default:
	// the sidecar symbol set is then byte-transparent to the artifact.
	CompressionNone Compression = "none"

	// CompressionLZ4 is LZ4 block compression. Fast default for
	// binary artifacts when sidecar size matters.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd is zstd at its default level. Better ratios for
	// text-like artifacts (JSON, logs, configs).
	CompressionZstd Compression = "zstd"

	// CompressionAuto probes the payload and picks between zstd, lz4,
	// and none. Never persisted: generation resolves it to a concrete
	// tag before the sidecar is written.
	CompressionAuto Compression = "auto"
)

// valid reports whether c is a tag that may appear in a stored
// sidecar.
func (c Compression) valid() bool {
	switch c {
	case CompressionNone, CompressionLZ4, CompressionZstd:
		return true
	}
	return false
}

// ParseCompression parses a compression tag from its CLI/config
// spelling, including "auto".
func ParseCompression(name string) (Compression, error) {
	switch Compression(name) {
	case CompressionNone, CompressionLZ4, CompressionZstd, CompressionAuto:
		return Compression(name), nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, lz4, zstd, or auto)", name)
	}
}

// zstdEncoder and zstdDecoder are reused across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("sidecar: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("sidecar: zstd decoder initialization failed: " + err.Error())
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than the input.
var errIncompressible = errors.New("payload is incompressible")

// Compress applies the requested compression to payload and returns
// the compressed bytes plus the tag that was actually used.
// CompressionAuto probes the payload first. If the payload does not
// shrink, the original bytes are returned with CompressionNone.
func Compress(payload []byte, requested Compression) ([]byte, Compression, error) {
	tag := requested
	if tag == CompressionAuto {
		tag = selectCompression(payload)
	}

	switch tag {
	case CompressionNone:
		return payload, CompressionNone, nil

	case CompressionLZ4:
		compressed, err := compressLZ4(payload)
		if errors.Is(err, errIncompressible) {
			return payload, CompressionNone, nil
		}
		if err != nil {
			return nil, "", err
		}
		return compressed, CompressionLZ4, nil

	case CompressionZstd:
		compressed := zstdEncoder.EncodeAll(payload, nil)
		if len(compressed) >= len(payload) {
			return payload, CompressionNone, nil
		}
		return compressed, CompressionZstd, nil

	default:
		return nil, "", fmt.Errorf("unsupported compression %q", requested)
	}
}

// Decompress reverses Compress. The uncompressedSize must match the
// original payload length exactly; a mismatch is an error, never a
// truncated result.
func Decompress(data []byte, tag Compression, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(data) != uncompressedSize {
			return nil, fmt.Errorf("uncompressed payload is %d bytes, want %d", len(data), uncompressedSize)
		}
		return data, nil

	case CompressionLZ4:
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(data, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, want %d", read, uncompressedSize)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(data, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, want %d", len(result), uncompressedSize)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported compression %q", tag)
	}
}

func compressLZ4(payload []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(payload))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(payload, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for data it deems incompressible.
	if written == 0 || written >= len(payload) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

// selectCompression probes the payload with zstd and picks a tag by
// ratio: zstd above 1.5x, lz4 between 1.1x and 1.5x, none below.
func selectCompression(payload []byte) Compression {
	if len(payload) == 0 {
		return CompressionNone
	}
	compressed := zstdEncoder.EncodeAll(payload, nil)
	ratio := float64(len(payload)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

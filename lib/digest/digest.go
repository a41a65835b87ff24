// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides tagged BLAKE3 content digests.
//
// A digest is the string "b3:" followed by 64 lowercase hex characters
// (BLAKE3-256). The algorithm tag makes stored digests self-describing:
// a future algorithm change produces values that can never compare
// equal to existing ones, so comparisons across sidecar versions fail
// closed instead of colliding.
//
// The empty string is never a valid digest. Callers use it as a
// sentinel for "no content" (for example, an artifact file that has
// gone missing) and rely on it comparing unequal to every real digest.
//
// This package has no dependencies on other bitward packages.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/zeebo/blake3"
)

// Prefix is the algorithm tag prepended to every digest value.
const Prefix = "b3:"

// Size is the digest length in bytes before hex encoding.
const Size = 32

// Bytes computes the tagged BLAKE3 digest of data. Deterministic and
// pure; there is no error path.
func Bytes(data []byte) string {
	sum := blake3.Sum256(data)
	return Prefix + hex.EncodeToString(sum[:])
}

// File computes the tagged BLAKE3 digest of the file at path. The file
// is streamed through the hasher (via io.Copy) to keep memory usage
// constant regardless of file size.
func File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", path, err)
	}
	defer file.Close()

	hasher := blake3.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	var sum [Size]byte
	copy(sum[:], hasher.Sum(nil))
	return Prefix + hex.EncodeToString(sum[:]), nil
}

// Parse validates a tagged digest string and returns the raw 32-byte
// digest. Returns an error if the tag is missing or the hex payload is
// not exactly 32 bytes.
func Parse(value string) ([Size]byte, error) {
	var sum [Size]byte
	if !strings.HasPrefix(value, Prefix) {
		return sum, fmt.Errorf("digest %q lacks the %q tag", value, Prefix)
	}
	decoded, err := hex.DecodeString(value[len(Prefix):])
	if err != nil {
		return sum, fmt.Errorf("parsing digest %q: %w", value, err)
	}
	if len(decoded) != Size {
		return sum, fmt.Errorf("digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(sum[:], decoded)
	return sum, nil
}

// Valid reports whether value is a well-formed tagged digest.
func Valid(value string) bool {
	_, err := Parse(value)
	return err == nil
}

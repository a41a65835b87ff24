// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// SealKey is the 32-byte symmetric root key for sealed sidecars. The
// actual encryption key is derived from it with HKDF-SHA256, so the
// root key can later fan out to other derivation paths without
// reuse.
type SealKey [32]byte

// sealedMagic prefixes every sealed sidecar blob. Load uses it to
// tell sealed blobs from plaintext JSON (which always starts with
// '{').
var sealedMagic = []byte("BWSC")

// sealedVersion is the format version byte. It is authenticated as
// AAD together with the magic, so tampering with either fails the
// AEAD open.
const sealedVersion byte = 0x01

// sealedOverhead is the total byte overhead of sealing: magic,
// version, XChaCha20-Poly1305 nonce, and Poly1305 tag.
const sealedOverhead = 4 + 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoSeal is the HKDF info string for the sidecar sealing
// derivation path. Changing it invalidates every sealed sidecar.
var hkdfInfoSeal = []byte("bitward.sidecar.seal.v1")

// LoadSealKey reads a seal key from a file. The file must hold either
// 32 raw bytes or their 64-character hex encoding (surrounding
// whitespace is ignored for the hex form).
func LoadSealKey(path string) (*SealKey, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seal key %s: %w", path, err)
	}

	var key SealKey
	if len(content) == len(key) {
		copy(key[:], content)
		return &key, nil
	}

	trimmed := strings.TrimSpace(string(content))
	decoded, err := hex.DecodeString(trimmed)
	if err != nil || len(decoded) != len(key) {
		return nil, fmt.Errorf("seal key %s must be 32 raw bytes or 64 hex characters", path)
	}
	copy(key[:], decoded)
	return &key, nil
}

// IsSealed reports whether data is a sealed sidecar blob.
func IsSealed(data []byte) bool {
	return bytes.HasPrefix(data, sealedMagic)
}

// deriveSealKey expands the root key into the AEAD key for the
// sidecar sealing path.
func deriveSealKey(key *SealKey) ([]byte, error) {
	derived := make([]byte, chacha20poly1305.KeySize)
	reader := hkdf.New(sha256.New, key[:], nil, hkdfInfoSeal)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, fmt.Errorf("deriving seal key: %w", err)
	}
	return derived, nil
}

// seal encrypts a plaintext sidecar record. Layout:
// magic (4) || version (1) || nonce (24) || ciphertext. The magic and
// version bytes are additional authenticated data.
func seal(key *SealKey, plaintext []byte) ([]byte, error) {
	derived, err := deriveSealKey(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("initializing seal cipher: %w", err)
	}

	header := make([]byte, 0, len(sealedMagic)+1)
	header = append(header, sealedMagic...)
	header = append(header, sealedVersion)

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating seal nonce: %w", err)
	}

	blob := make([]byte, 0, sealedOverhead+len(plaintext))
	blob = append(blob, header...)
	blob = append(blob, nonce...)
	blob = aead.Seal(blob, nonce, plaintext, header)
	return blob, nil
}

// unseal decrypts a sealed sidecar blob. Returns [ErrSealed] (wrapped)
// when the blob is malformed or the key does not authenticate it.
func unseal(key *SealKey, blob []byte) ([]byte, error) {
	headerSize := len(sealedMagic) + 1
	if len(blob) < headerSize+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return nil, fmt.Errorf("%w: sealed blob is truncated (%d bytes)", ErrSealed, len(blob))
	}
	if !bytes.HasPrefix(blob, sealedMagic) {
		return nil, fmt.Errorf("%w: missing seal magic", ErrSealed)
	}
	if blob[len(sealedMagic)] != sealedVersion {
		return nil, fmt.Errorf("%w: unknown seal version %d", ErrSealed, blob[len(sealedMagic)])
	}

	derived, err := deriveSealKey(key)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, fmt.Errorf("initializing seal cipher: %w", err)
	}

	header := blob[:headerSize]
	nonce := blob[headerSize : headerSize+chacha20poly1305.NonceSizeX]
	ciphertext := blob[headerSize+chacha20poly1305.NonceSizeX:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, header)
	if err != nil {
		return nil, fmt.Errorf("%w: authentication failed", ErrSealed)
	}
	return plaintext, nil
}

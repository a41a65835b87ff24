// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package sidecar

import "errors"

var (
	// ErrIO indicates the sidecar file could not be read or written.
	// The underlying filesystem error is wrapped alongside it.
	ErrIO = errors.New("sidecar i/o failure")

	// ErrSerialization indicates the sidecar contents are not valid
	// JSON or violate the record schema.
	ErrSerialization = errors.New("sidecar record is malformed")

	// ErrEncoding indicates an embedded binary-to-text payload (the
	// transmission parameter blob or a symbol) failed base64 decoding.
	ErrEncoding = errors.New("embedded payload is not valid base64")

	// ErrSealed indicates a sealed sidecar was loaded without the
	// seal key, or the key failed to authenticate the ciphertext.
	ErrSealed = errors.New("sidecar is sealed")
)

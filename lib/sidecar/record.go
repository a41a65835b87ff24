// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package sidecar defines the durability record attached to each
// protected artifact and its JSON persistence.
//
// A sidecar holds everything needed to detect corruption of the
// artifact and to heal it: the source digest recorded at generation
// time, the erasure-coded symbol set with its transmission parameters,
// the most recent scrub outcome, and the append-only trail of decode
// proofs. The record is always rewritten whole; it is never patched in
// place.
package sidecar

import (
	"encoding/base64"
	"fmt"

	"github.com/bitward/bitward/lib/digest"
	"github.com/bitward/bitward/lib/fec"
)

// State is the outcome of the most recent scrub or drill.
type State string

const (
	// StateOK means the last scrub found the artifact intact.
	StateOK State = "ok"

	// StateRecovered means the last scrub or drill reconstructed the
	// payload from the embedded redundancy.
	StateRecovered State = "recovered"

	// StateFailed means reconstruction succeeded but did not match
	// the recorded source digest — the redundancy itself is
	// inconsistent with the ground truth.
	StateFailed State = "failed"
)

// valid reports whether s is one of the three known states.
func (s State) valid() bool {
	switch s {
	case StateOK, StateRecovered, StateFailed:
		return true
	}
	return false
}

// Decode proof reasons. A proof records that recovery happened, not
// that the artifact's current bytes were re-verified.
const (
	ReasonScrubRecovery = "scrub_recovery"
	ReasonDecodeDrill   = "decode_drill"
)

// Record is the persisted durability record, one per protected
// artifact.
type Record struct {
	// ArtifactID and ArtifactType identify the protected artifact.
	// Opaque, non-empty, fixed at creation.
	ArtifactID   string `json:"artifact_id"`
	ArtifactType string `json:"artifact_type"`

	// SourceHash is the digest of the artifact bytes at generation
	// time. Immutable thereafter — it is the ground truth every scrub
	// defends.
	SourceHash string `json:"source_hash"`

	// Codec is the erasure-coding metadata and symbol set.
	Codec CodecSidecar `json:"codec_sidecar"`

	// ScrubStatus is the most recent scrub or drill outcome.
	ScrubStatus ScrubStatus `json:"scrub_status"`

	// DecodeProofs is the append-only, insertion-ordered trail of
	// recovery events. Never truncated or reordered.
	DecodeProofs []DecodeProof `json:"decode_proofs"`
}

// CodecSidecar holds the erasure-coding metadata: counts, the encoded
// transmission parameters, and the ordered symbol packets.
type CodecSidecar struct {
	// K is the number of source symbols (total emitted minus repair,
	// saturating at zero).
	K int `json:"k"`

	// RepairSymbols is the requested redundancy count.
	RepairSymbols int `json:"repair_symbols"`

	// OverheadRatio is RepairSymbols / K, or 0 when K is 0.
	OverheadRatio float64 `json:"overhead_ratio"`

	// Compression is the payload compression applied before erasure
	// encoding ("none", "lz4", or "zstd").
	Compression Compression `json:"compression"`

	// UncompressedSize is the raw artifact byte length. Needed to
	// size the decompression buffer; equals the encoded payload size
	// when Compression is "none".
	UncompressedSize int64 `json:"uncompressed_size"`

	// SymbolHashes holds one digest per emitted symbol packet, in
	// packet order. Operations never consult it to decide an outcome;
	// it exists for symbol-level tamper localization.
	SymbolHashes []string `json:"symbol_hashes"`

	// TransmissionParamsB64 is the base64-encoded fixed-length
	// parameter blob needed to begin decoding.
	TransmissionParamsB64 string `json:"transmission_params_b64"`

	// SymbolsB64 is the ordered list of base64-encoded symbol
	// packets, source symbols first.
	SymbolsB64 []string `json:"symbols_b64"`
}

// ScrubStatus is the last scrub outcome.
type ScrubStatus struct {
	LastOKUnixMS int64 `json:"last_ok_unix_ms"`
	Status       State `json:"status"`
}

// DecodeProof is one tamper-evident recovery event.
type DecodeProof struct {
	TSUnixMS        int64  `json:"ts_unix_ms"`
	Reason          string `json:"reason"`
	RecoveredBlocks int    `json:"recovered_blocks"`
	ProofHash       string `json:"proof_hash"`
}

// NewCodecSidecar builds the codec metadata for an encoded symbol set:
// base64-encodes the parameters and packets, digests each packet, and
// derives k and the overhead ratio.
func NewCodecSidecar(params fec.Params, symbols []fec.Symbol, repairCount int, compression Compression, uncompressedSize int64) (CodecSidecar, error) {
	paramsBlob, err := params.MarshalBinary()
	if err != nil {
		return CodecSidecar{}, fmt.Errorf("encoding transmission parameters: %w", err)
	}

	k := len(symbols) - repairCount
	if k < 0 {
		k = 0
	}
	overhead := 0.0
	if k > 0 {
		overhead = float64(repairCount) / float64(k)
	}

	hashes := make([]string, len(symbols))
	packets := make([]string, len(symbols))
	for i, symbol := range symbols {
		packet, err := symbol.MarshalBinary()
		if err != nil {
			return CodecSidecar{}, fmt.Errorf("encoding symbol %d: %w", i, err)
		}
		hashes[i] = digest.Bytes(packet)
		packets[i] = base64.StdEncoding.EncodeToString(packet)
	}

	return CodecSidecar{
		K:                     k,
		RepairSymbols:         repairCount,
		OverheadRatio:         overhead,
		Compression:           compression,
		UncompressedSize:      uncompressedSize,
		SymbolHashes:          hashes,
		TransmissionParamsB64: base64.StdEncoding.EncodeToString(paramsBlob),
		SymbolsB64:            packets,
	}, nil
}

// Params decodes the embedded transmission parameters.
func (c *CodecSidecar) Params() (fec.Params, error) {
	blob, err := base64.StdEncoding.DecodeString(c.TransmissionParamsB64)
	if err != nil {
		return fec.Params{}, fmt.Errorf("%w: transmission parameters: %v", ErrEncoding, err)
	}
	return fec.ParseParams(blob)
}

// Symbols decodes the embedded symbol packets, preserving order.
func (c *CodecSidecar) Symbols() ([]fec.Symbol, error) {
	symbols := make([]fec.Symbol, len(c.SymbolsB64))
	for i, encoded := range c.SymbolsB64 {
		packet, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol %d: %v", ErrEncoding, i, err)
		}
		symbol, err := fec.ParseSymbol(packet)
		if err != nil {
			return nil, fmt.Errorf("symbol %d: %w", i, err)
		}
		symbols[i] = symbol
	}
	return symbols, nil
}

// Validate checks the structural invariants of a record. Called on
// every load so a malformed sidecar surfaces as [ErrSerialization]
// rather than an engine misbehavior later.
func (r *Record) Validate() error {
	if r.ArtifactID == "" {
		return fmt.Errorf("%w: artifact_id is empty", ErrSerialization)
	}
	if r.ArtifactType == "" {
		return fmt.Errorf("%w: artifact_type is empty", ErrSerialization)
	}
	if !digest.Valid(r.SourceHash) {
		return fmt.Errorf("%w: source_hash %q is not a valid digest", ErrSerialization, r.SourceHash)
	}
	if r.Codec.K < 0 {
		return fmt.Errorf("%w: k %d is negative", ErrSerialization, r.Codec.K)
	}
	if r.Codec.RepairSymbols < 0 {
		return fmt.Errorf("%w: repair_symbols %d is negative", ErrSerialization, r.Codec.RepairSymbols)
	}
	if !r.Codec.Compression.valid() {
		return fmt.Errorf("%w: unknown compression %q", ErrSerialization, r.Codec.Compression)
	}
	if len(r.Codec.SymbolHashes) != len(r.Codec.SymbolsB64) {
		return fmt.Errorf("%w: %d symbol hashes for %d symbols",
			ErrSerialization, len(r.Codec.SymbolHashes), len(r.Codec.SymbolsB64))
	}
	if len(r.Codec.SymbolsB64) == 0 {
		return fmt.Errorf("%w: no symbols", ErrSerialization)
	}
	if !r.ScrubStatus.Status.valid() {
		return fmt.Errorf("%w: unknown scrub status %q", ErrSerialization, r.ScrubStatus.Status)
	}
	for i, proof := range r.DecodeProofs {
		if proof.Reason != ReasonScrubRecovery && proof.Reason != ReasonDecodeDrill {
			return fmt.Errorf("%w: decode proof %d has unknown reason %q", ErrSerialization, i, proof.Reason)
		}
	}
	return nil
}

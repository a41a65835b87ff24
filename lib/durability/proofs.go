// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package durability

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/bitward/bitward/lib/codec"
	"github.com/bitward/bitward/lib/digest"
	"github.com/bitward/bitward/lib/sidecar"
)

// LedgerSuffix is appended to the sidecar path to name the external
// proof ledger file.
const LedgerSuffix = ".proofs"

// appendProof appends one decode proof to the record's in-memory
// trail and, when the external ledger is enabled, to the CBOR ledger
// file next to the sidecar.
//
// The proof hash is a digest of the recorded source hash string — a
// recovery fingerprint, not a restatement of the artifact digest and
// not a re-verification of the artifact's current bytes.
func (e *Engine) appendProof(record *sidecar.Record, reason string, sidecarPath string) {
	proof := sidecar.DecodeProof{
		TSUnixMS:        e.now().UnixMilli(),
		Reason:          reason,
		RecoveredBlocks: record.Codec.K,
		ProofHash:       digest.Bytes([]byte(record.SourceHash)),
	}
	record.DecodeProofs = append(record.DecodeProofs, proof)

	if !e.proofLedger {
		return
	}
	// Ledger append failures are logged, never fatal: the sidecar
	// record remains the source of truth for the proof trail.
	if err := appendLedger(sidecarPath+LedgerSuffix, proof); err != nil {
		e.logger.Warn("proof ledger append failed",
			"artifact_id", record.ArtifactID,
			"ledger", sidecarPath+LedgerSuffix,
			"error", err)
	}
}

// appendLedger appends one deterministically encoded CBOR item to the
// ledger file, creating it on first use. Each item is one decode
// proof; the file as a whole is a CBOR sequence.
func appendLedger(path string, proof sidecar.DecodeProof) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()

	if err := codec.NewEncoder(file).Encode(proof); err != nil {
		return fmt.Errorf("appending proof: %w", err)
	}
	return nil
}

// ReadLedger decodes all proofs from a ledger file, in append order.
func ReadLedger(path string) ([]sidecar.DecodeProof, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}
	defer file.Close()

	var proofs []sidecar.DecodeProof
	decoder := codec.NewDecoder(file)
	for {
		var proof sidecar.DecodeProof
		if err := decoder.Decode(&proof); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return proofs, fmt.Errorf("decoding ledger item %d: %w", len(proofs), err)
		}
		proofs = append(proofs, proof)
	}
	return proofs, nil
}

// LocateTamperedSymbols re-digests every stored symbol packet and
// returns the indices whose digest no longer matches the recorded
// symbol hash. A packet that fails base64 decoding counts as
// tampered. Purely observational: no operation's outcome depends on
// the result.
func LocateTamperedSymbols(record *sidecar.Record) []int {
	var tampered []int
	for i, encoded := range record.Codec.SymbolsB64 {
		if i >= len(record.Codec.SymbolHashes) {
			break
		}
		packet, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil || digest.Bytes(packet) != record.Codec.SymbolHashes[i] {
			tampered = append(tampered, i)
		}
	}
	return tampered
}

// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package durability orchestrates the three public operations over an
// artifact and its sidecar: generate, scrub, and decode-drill.
//
// The engine is a stateless set of operations parameterized by paths
// and bytes; all durable state lives in the sidecar record. Every
// operation is synchronous, loads the full artifact and symbol set
// into memory, and performs no locking — concurrent invocations
// against the same sidecar path are a filesystem race the caller must
// serialize.
//
// The scrub status forms a small state machine over ok, recovered,
// and failed. No state is terminal: every operation may move the
// record to any state on its next run.
package durability

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/bitward/bitward/lib/digest"
	"github.com/bitward/bitward/lib/fec"
	"github.com/bitward/bitward/lib/sidecar"
)

// ErrHashMismatch indicates reconstruction succeeded but the result
// does not match the recorded source hash. This is the stronger
// failure mode: the embedded redundancy itself disagrees with the
// ground truth, not merely the live artifact.
var ErrHashMismatch = errors.New("reconstructed payload does not match source hash")

// Engine runs the durability operations. The zero value is not
// usable; construct with [NewEngine].
type Engine struct {
	logger      *slog.Logger
	now         func() time.Time
	sealKey     *sidecar.SealKey
	proofLedger bool
}

// Options configures an Engine. All fields are optional.
type Options struct {
	// Logger receives operational logging. Nil discards.
	Logger *slog.Logger

	// Now supplies timestamps for scrub status and decode proofs.
	// Nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time

	// SealKey, when set, seals sidecars at rest and is required to
	// load them back.
	SealKey *sidecar.SealKey

	// ProofLedger, when set, appends every decode proof to the
	// external CBOR ledger next to the sidecar.
	ProofLedger bool
}

// NewEngine creates an engine with the given options.
func NewEngine(options Options) *Engine {
	engine := &Engine{
		logger:      options.Logger,
		now:         options.Now,
		sealKey:     options.SealKey,
		proofLedger: options.ProofLedger,
	}
	if engine.logger == nil {
		engine.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if engine.now == nil {
		engine.now = time.Now
	}
	return engine
}

// GenerateParams are the creation-time parameters for a durability
// record.
type GenerateParams struct {
	// ArtifactID and ArtifactType identify the artifact. Both must be
	// non-empty; they are opaque to the engine.
	ArtifactID   string
	ArtifactType string

	// MaxSymbolSize bounds each erasure-coded symbol.
	MaxSymbolSize int

	// RepairSymbols is the redundancy budget.
	RepairSymbols int

	// Compression is applied to the payload before encoding. Empty
	// means none.
	Compression sidecar.Compression
}

// Generate creates the durability record for artifact and persists it
// at sidecarPath. Any hashing, encoding, or I/O failure aborts before
// persistence — a failed generate never leaves a record behind.
func (e *Engine) Generate(artifact []byte, sidecarPath string, params GenerateParams) (*sidecar.Record, error) {
	if params.ArtifactID == "" {
		return nil, fmt.Errorf("artifact id is empty")
	}
	if params.ArtifactType == "" {
		return nil, fmt.Errorf("artifact type is empty")
	}

	compression := params.Compression
	if compression == "" {
		compression = sidecar.CompressionNone
	}

	sourceHash := digest.Bytes(artifact)

	payload, actualCompression, err := sidecar.Compress(artifact, compression)
	if err != nil {
		return nil, fmt.Errorf("compressing payload: %w", err)
	}

	transmission, symbols, err := fec.Encode(payload, params.MaxSymbolSize, params.RepairSymbols)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	codecSidecar, err := sidecar.NewCodecSidecar(transmission, symbols, params.RepairSymbols, actualCompression, int64(len(artifact)))
	if err != nil {
		return nil, err
	}

	record := &sidecar.Record{
		ArtifactID:   params.ArtifactID,
		ArtifactType: params.ArtifactType,
		SourceHash:   sourceHash,
		Codec:        codecSidecar,
		ScrubStatus: sidecar.ScrubStatus{
			LastOKUnixMS: e.now().UnixMilli(),
			Status:       sidecar.StateOK,
		},
		DecodeProofs: []sidecar.DecodeProof{},
	}

	if err := sidecar.Store(sidecarPath, record, e.sealKey); err != nil {
		return nil, err
	}

	e.logger.Info("generated durability sidecar",
		"artifact_id", params.ArtifactID,
		"sidecar", sidecarPath,
		"k", record.Codec.K,
		"repair_symbols", record.Codec.RepairSymbols,
		"overhead_ratio", record.Codec.OverheadRatio,
		"compression", string(record.Codec.Compression))
	return record, nil
}

// Scrub checks the artifact at artifactPath against its sidecar and
// heals it in place when the embedded redundancy can reconstruct the
// recorded ground truth.
//
// An intact artifact refreshes the ok timestamp and returns without
// touching the codec. A missing artifact digests to the empty-string
// sentinel, which never equals a real source hash, so it takes the
// recovery path. A decode failure propagates with the persisted
// status deliberately left untouched (last-known-good marker pending
// investigation). A reconstruction that disagrees with the source
// hash persists the failed state and returns [ErrHashMismatch].
func (e *Engine) Scrub(artifactPath, sidecarPath string) (*sidecar.Record, error) {
	record, err := sidecar.Load(sidecarPath, e.sealKey)
	if err != nil {
		return nil, err
	}

	currentHash := ""
	content, err := os.ReadFile(artifactPath)
	switch {
	case err == nil:
		currentHash = digest.Bytes(content)
	case errors.Is(err, fs.ErrNotExist):
		// Absent artifact: the empty sentinel forces the mismatch
		// branch below.
	default:
		return nil, fmt.Errorf("%w: reading artifact %s: %w", sidecar.ErrIO, artifactPath, err)
	}

	if currentHash == record.SourceHash {
		record.ScrubStatus = sidecar.ScrubStatus{
			LastOKUnixMS: e.now().UnixMilli(),
			Status:       sidecar.StateOK,
		}
		if err := sidecar.Store(sidecarPath, record, e.sealKey); err != nil {
			return nil, err
		}
		e.logger.Debug("scrub ok", "artifact", artifactPath, "artifact_id", record.ArtifactID)
		return record, nil
	}

	e.logger.Warn("artifact digest mismatch, attempting recovery",
		"artifact", artifactPath,
		"artifact_id", record.ArtifactID,
		"missing", currentHash == "")
	if tampered := LocateTamperedSymbols(record); len(tampered) > 0 {
		e.logger.Warn("sidecar symbols tampered", "artifact_id", record.ArtifactID, "symbol_indices", tampered)
	}

	recovered, err := e.reconstruct(record)
	if err != nil {
		// Status intentionally not persisted here; see the scrub
		// contract above.
		return nil, err
	}

	if digest.Bytes(recovered) != record.SourceHash {
		record.ScrubStatus = sidecar.ScrubStatus{
			LastOKUnixMS: e.now().UnixMilli(),
			Status:       sidecar.StateFailed,
		}
		if err := sidecar.Store(sidecarPath, record, e.sealKey); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("scrubbing %s: %w", artifactPath, ErrHashMismatch)
	}

	if err := os.WriteFile(artifactPath, recovered, 0o644); err != nil {
		return nil, fmt.Errorf("%w: restoring artifact %s: %w", sidecar.ErrIO, artifactPath, err)
	}

	e.appendProof(record, sidecar.ReasonScrubRecovery, sidecarPath)
	record.ScrubStatus = sidecar.ScrubStatus{
		LastOKUnixMS: e.now().UnixMilli(),
		Status:       sidecar.StateRecovered,
	}
	if err := sidecar.Store(sidecarPath, record, e.sealKey); err != nil {
		return nil, err
	}

	e.logger.Info("artifact recovered in place",
		"artifact", artifactPath,
		"artifact_id", record.ArtifactID,
		"recovered_blocks", record.Codec.K)
	return record, nil
}

// DecodeDrill rehearses recovery without requiring real corruption:
// it decodes with the first min(repair_symbols, 2) symbols removed to
// prove the repair budget holds, falling back to the full symbol set,
// and writes the reconstructed payload to outputPath. The live
// artifact is never touched.
func (e *Engine) DecodeDrill(sidecarPath, outputPath string) (*sidecar.Record, error) {
	record, err := sidecar.Load(sidecarPath, e.sealKey)
	if err != nil {
		return nil, err
	}

	transmission, err := record.Codec.Params()
	if err != nil {
		return nil, err
	}
	symbols, err := record.Codec.Symbols()
	if err != nil {
		return nil, err
	}

	dropCount := min(record.Codec.RepairSymbols, 2)
	if dropCount > len(symbols) {
		dropCount = 0
	}
	payload, err := fec.Decode(transmission, symbols[dropCount:])
	if err != nil {
		e.logger.Warn("drill decode with simulated loss failed, retrying with full symbol set",
			"artifact_id", record.ArtifactID,
			"dropped", dropCount,
			"error", err)
		payload, err = fec.Decode(transmission, symbols)
		if err != nil {
			return nil, fmt.Errorf("drill decode with full symbol set: %w", err)
		}
	}

	recovered, err := sidecar.Decompress(payload, record.Codec.Compression, int(record.Codec.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompressing drill payload: %w", err)
	}

	if digest.Bytes(recovered) != record.SourceHash {
		return nil, fmt.Errorf("drill for %s: %w", record.ArtifactID, ErrHashMismatch)
	}

	if directory := filepath.Dir(outputPath); directory != "." {
		if err := os.MkdirAll(directory, 0o755); err != nil {
			return nil, fmt.Errorf("%w: creating %s: %w", sidecar.ErrIO, directory, err)
		}
	}
	if err := os.WriteFile(outputPath, recovered, 0o644); err != nil {
		return nil, fmt.Errorf("%w: writing recovered output %s: %w", sidecar.ErrIO, outputPath, err)
	}

	e.appendProof(record, sidecar.ReasonDecodeDrill, sidecarPath)
	record.ScrubStatus = sidecar.ScrubStatus{
		LastOKUnixMS: e.now().UnixMilli(),
		Status:       sidecar.StateRecovered,
	}
	if err := sidecar.Store(sidecarPath, record, e.sealKey); err != nil {
		return nil, err
	}

	e.logger.Info("decode drill succeeded",
		"artifact_id", record.ArtifactID,
		"output", outputPath,
		"dropped", dropCount)
	return record, nil
}

// reconstruct decodes the stored symbol set back into the original
// artifact bytes (including decompression).
func (e *Engine) reconstruct(record *sidecar.Record) ([]byte, error) {
	transmission, err := record.Codec.Params()
	if err != nil {
		return nil, err
	}
	symbols, err := record.Codec.Symbols()
	if err != nil {
		return nil, err
	}
	payload, err := fec.Decode(transmission, symbols)
	if err != nil {
		return nil, fmt.Errorf("decoding stored symbols: %w", err)
	}
	recovered, err := sidecar.Decompress(payload, record.Codec.Compression, int(record.Codec.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	return recovered, nil
}

// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package fec wraps a systematic Reed–Solomon erasure code behind the
// narrow encode/decode interface the durability engine consumes.
//
// [Encode] splits a payload into k source symbols bounded by a maximum
// symbol size and derives a requested number of repair symbols.
// [Decoder] is a stateful accumulator: symbols are fed one at a time,
// and reconstruction succeeds as soon as any k distinct symbols have
// been accepted, regardless of which positions were lost. The result
// is always the exact original payload or an explicit failure — there
// is no partial success.
//
// The engine never touches the underlying code directly, so swapping
// in a different systematic or rateless scheme only means reimplementing
// this package's four exported entry points.
package fec

import (
	"errors"
	"fmt"

	"github.com/klauspost/reedsolomon"
)

var (
	// ErrDecodeFailed indicates the supplied symbols do not carry
	// enough information to reconstruct the payload.
	ErrDecodeFailed = errors.New("insufficient symbols to reconstruct payload")

	// ErrInvalidParams indicates a transmission parameter blob of the
	// wrong length or with internally inconsistent values.
	ErrInvalidParams = errors.New("invalid transmission parameters")

	// ErrInvalidSymbol indicates a malformed symbol packet (truncated
	// header, out-of-range index, or wrong shard length).
	ErrInvalidSymbol = errors.New("invalid symbol packet")
)

// gf16Alignment is the shard size alignment the codec's GF(2^16) path
// requires. The codec switches to that path when the total shard count
// exceeds maxShardsGF8.
const (
	gf16Alignment  = 64
	maxShardsGF8   = 256
	maxTotalShards = 65536
)

// Encode splits payload into source symbols of at most maxSymbolSize
// bytes, derives repairCount repair symbols, and returns the
// transmission parameters plus the full ordered symbol list (source
// symbols first, then repair). An empty payload is encoded as a single
// zero-filled source symbol; the parameters record the true payload
// length, so decode returns empty bytes.
//
// When the payload needs more than 256 total shards the symbol size is
// aligned down to a multiple of 64 bytes (a constraint of the wide
// code path). More than 65536 total shards is an error.
func Encode(payload []byte, maxSymbolSize, repairCount int) (Params, []Symbol, error) {
	if maxSymbolSize < 1 {
		return Params{}, nil, fmt.Errorf("max symbol size %d is invalid (minimum 1)", maxSymbolSize)
	}
	if repairCount < 0 {
		return Params{}, nil, fmt.Errorf("repair symbol count %d is negative", repairCount)
	}

	symbolSize := maxSymbolSize
	k := sourceSymbolCount(len(payload), symbolSize)

	if k+repairCount > maxShardsGF8 && symbolSize%gf16Alignment != 0 {
		symbolSize -= symbolSize % gf16Alignment
		if symbolSize == 0 {
			return Params{}, nil, fmt.Errorf(
				"max symbol size %d is too small for %d shards (wide code needs %d-byte alignment)",
				maxSymbolSize, k+repairCount, gf16Alignment)
		}
		k = sourceSymbolCount(len(payload), symbolSize)
	}
	if k+repairCount > maxTotalShards {
		return Params{}, nil, fmt.Errorf("payload needs %d shards, maximum is %d", k+repairCount, maxTotalShards)
	}

	// Split the payload into k uniform shards, zero-padding the tail.
	padded := make([]byte, k*symbolSize)
	copy(padded, payload)
	shards := make([][]byte, k+repairCount)
	for i := 0; i < k; i++ {
		shards[i] = padded[i*symbolSize : (i+1)*symbolSize]
	}

	if repairCount > 0 {
		encoder, err := reedsolomon.New(k, repairCount)
		if err != nil {
			return Params{}, nil, fmt.Errorf("initializing erasure encoder (k=%d, repair=%d): %w", k, repairCount, err)
		}
		for i := k; i < k+repairCount; i++ {
			shards[i] = make([]byte, symbolSize)
		}
		if err := encoder.Encode(shards); err != nil {
			return Params{}, nil, fmt.Errorf("computing repair symbols: %w", err)
		}
	}

	params := Params{
		PayloadSize:   uint64(len(payload)),
		SymbolSize:    uint32(symbolSize),
		TotalSymbols:  uint32(k + repairCount),
		RepairSymbols: uint32(repairCount),
	}

	symbols := make([]Symbol, len(shards))
	for i, shard := range shards {
		symbols[i] = Symbol{Index: uint32(i), Data: shard}
	}
	return params, symbols, nil
}

// sourceSymbolCount returns the number of source symbols needed for a
// payload at the given symbol size, minimum 1.
func sourceSymbolCount(payloadLen, symbolSize int) int {
	k := (payloadLen + symbolSize - 1) / symbolSize
	if k == 0 {
		k = 1
	}
	return k
}

// Decoder accumulates symbols until the payload can be reconstructed.
// Symbols may arrive in any order and any subset; duplicates are
// ignored. Not safe for concurrent use.
type Decoder struct {
	params   Params
	shards   [][]byte
	received int
	payload  []byte
	done     bool
}

// NewDecoder creates a decoding accumulator for the given transmission
// parameters. Returns [ErrInvalidParams] (wrapped) if the parameters
// cannot describe a decodable symbol set.
func NewDecoder(params Params) (*Decoder, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Decoder{
		params: params,
		shards: make([][]byte, params.TotalSymbols),
	}, nil
}

// Feed offers one symbol to the accumulator. Once enough information
// has accumulated it reconstructs and returns the payload with
// done=true; every later call returns the same payload. A symbol with
// an out-of-range index or wrong shard length is rejected with
// [ErrInvalidSymbol] without disturbing the accumulated state.
func (d *Decoder) Feed(symbol Symbol) (payload []byte, done bool, err error) {
	if d.done {
		return d.payload, true, nil
	}
	if int(symbol.Index) >= len(d.shards) {
		return nil, false, fmt.Errorf("%w: index %d out of range (total %d)",
			ErrInvalidSymbol, symbol.Index, len(d.shards))
	}
	if len(symbol.Data) != int(d.params.SymbolSize) {
		return nil, false, fmt.Errorf("%w: shard is %d bytes, want %d",
			ErrInvalidSymbol, len(symbol.Data), d.params.SymbolSize)
	}

	// Duplicate indices carry no new information.
	if d.shards[symbol.Index] != nil {
		return nil, false, nil
	}
	d.shards[symbol.Index] = symbol.Data
	d.received++

	k := d.params.SourceSymbols()
	if d.received < k {
		return nil, false, nil
	}
	if d.params.RepairSymbols == 0 && !d.allSourcePresent(k) {
		// Without repair symbols there is nothing to reconstruct
		// from; only the complete source set decodes.
		return nil, false, nil
	}

	reconstructed, err := d.reconstruct(k)
	if err != nil {
		return nil, false, err
	}
	d.payload = reconstructed
	d.done = true
	return d.payload, true, nil
}

func (d *Decoder) allSourcePresent(k int) bool {
	for i := 0; i < k; i++ {
		if d.shards[i] == nil {
			return false
		}
	}
	return true
}

// reconstruct rebuilds any missing source shards and joins them,
// truncated to the original payload length.
func (d *Decoder) reconstruct(k int) ([]byte, error) {
	if !d.allSourcePresent(k) {
		decoder, err := reedsolomon.New(k, int(d.params.RepairSymbols))
		if err != nil {
			return nil, fmt.Errorf("initializing erasure decoder (k=%d, repair=%d): %w",
				k, d.params.RepairSymbols, err)
		}
		if err := decoder.ReconstructData(d.shards); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailed, err)
		}
	}

	joined := make([]byte, 0, k*int(d.params.SymbolSize))
	for i := 0; i < k; i++ {
		joined = append(joined, d.shards[i]...)
	}
	return joined[:d.params.PayloadSize], nil
}

// Decode feeds the given symbols into a fresh accumulator one at a
// time and returns the payload as soon as reconstruction succeeds.
// Malformed symbols are skipped — dropped or damaged packets must
// degrade capacity, not crash the decode. If the symbol list is
// exhausted without reconstruction, returns [ErrDecodeFailed].
func Decode(params Params, symbols []Symbol) ([]byte, error) {
	decoder, err := NewDecoder(params)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, symbol := range symbols {
		payload, done, err := decoder.Feed(symbol)
		if err != nil {
			lastErr = err
			continue
		}
		if done {
			return payload, nil
		}
	}
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last symbol error: %v)", ErrDecodeFailed, lastErr)
	}
	return nil, ErrDecodeFailed
}

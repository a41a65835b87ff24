// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package fec

import (
	"encoding/binary"
	"fmt"
)

// ParamsSize is the exact encoded length of transmission parameters.
// A blob of any other length is rejected with [ErrInvalidParams].
const ParamsSize = 20

// Params are the transmission parameters a decoder needs before it can
// accept symbols: the original payload length, the uniform symbol
// size, and how the emitted symbol list splits into source and repair
// symbols. Params must be stored alongside the symbols; without them
// the symbol list is meaningless.
type Params struct {
	// PayloadSize is the exact byte length of the original payload.
	// The last source symbol is zero-padded up to SymbolSize; decode
	// truncates the joined shards back to this length.
	PayloadSize uint64

	// SymbolSize is the uniform byte length of every symbol's data.
	SymbolSize uint32

	// TotalSymbols is the number of emitted symbols, source plus
	// repair.
	TotalSymbols uint32

	// RepairSymbols is how many of the emitted symbols are repair
	// (parity) symbols.
	RepairSymbols uint32
}

// SourceSymbols returns k, the number of source symbols. Saturates at
// zero if the repair count exceeds the total (only possible with a
// corrupted parameter blob).
func (p Params) SourceSymbols() int {
	if p.RepairSymbols >= p.TotalSymbols {
		return 0
	}
	return int(p.TotalSymbols - p.RepairSymbols)
}

// MarshalBinary encodes the parameters as a fixed 20-byte big-endian
// blob.
func (p Params) MarshalBinary() ([]byte, error) {
	out := make([]byte, ParamsSize)
	binary.BigEndian.PutUint64(out[0:8], p.PayloadSize)
	binary.BigEndian.PutUint32(out[8:12], p.SymbolSize)
	binary.BigEndian.PutUint32(out[12:16], p.TotalSymbols)
	binary.BigEndian.PutUint32(out[16:20], p.RepairSymbols)
	return out, nil
}

// ParseParams decodes a transmission parameter blob. The blob must be
// exactly [ParamsSize] bytes.
func ParseParams(data []byte) (Params, error) {
	if len(data) != ParamsSize {
		return Params{}, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidParams, len(data), ParamsSize)
	}
	return Params{
		PayloadSize:   binary.BigEndian.Uint64(data[0:8]),
		SymbolSize:    binary.BigEndian.Uint32(data[8:12]),
		TotalSymbols:  binary.BigEndian.Uint32(data[12:16]),
		RepairSymbols: binary.BigEndian.Uint32(data[16:20]),
	}, nil
}

// validate checks that parameters describe a decodable symbol set.
func (p Params) validate() error {
	if p.SymbolSize == 0 {
		return fmt.Errorf("%w: symbol size is zero", ErrInvalidParams)
	}
	if p.TotalSymbols == 0 {
		return fmt.Errorf("%w: total symbol count is zero", ErrInvalidParams)
	}
	k := p.SourceSymbols()
	if k == 0 {
		return fmt.Errorf("%w: no source symbols (%d total, %d repair)",
			ErrInvalidParams, p.TotalSymbols, p.RepairSymbols)
	}
	if p.PayloadSize > uint64(k)*uint64(p.SymbolSize) {
		return fmt.Errorf("%w: payload size %d exceeds source symbol capacity %d",
			ErrInvalidParams, p.PayloadSize, uint64(k)*uint64(p.SymbolSize))
	}
	return nil
}

// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package fec

import (
	"encoding/binary"
	"fmt"
)

// symbolHeaderSize is the packet header length: a 4-byte big-endian
// encoding symbol index.
const symbolHeaderSize = 4

// Symbol is one erasure-coded packet: an encoding symbol index plus
// the shard bytes for that position. Indices [0, k) are source
// symbols; [k, total) are repair symbols. Packets carry their own
// index so a decoder can accept any subset in any order — loss of a
// prefix, a suffix, or an arbitrary scattering of packets all look the
// same to the accumulator.
type Symbol struct {
	Index uint32
	Data  []byte
}

// MarshalBinary encodes the symbol as a self-describing packet:
// 4-byte big-endian index followed by the shard bytes.
func (s Symbol) MarshalBinary() ([]byte, error) {
	out := make([]byte, symbolHeaderSize+len(s.Data))
	binary.BigEndian.PutUint32(out[:symbolHeaderSize], s.Index)
	copy(out[symbolHeaderSize:], s.Data)
	return out, nil
}

// ParseSymbol decodes a symbol packet. The packet must be at least the
// header plus one data byte; the shard length against the transmission
// parameters is checked later, when the symbol is fed to a decoder.
func ParseSymbol(data []byte) (Symbol, error) {
	if len(data) <= symbolHeaderSize {
		return Symbol{}, fmt.Errorf("%w: packet is %d bytes, need more than %d",
			ErrInvalidSymbol, len(data), symbolHeaderSize)
	}
	shard := make([]byte, len(data)-symbolHeaderSize)
	copy(shard, data[symbolHeaderSize:])
	return Symbol{
		Index: binary.BigEndian.Uint32(data[:symbolHeaderSize]),
		Data:  shard,
	}, nil
}

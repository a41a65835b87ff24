// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package fec

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"
)

// testPayload returns a deterministic pseudo-random payload of the
// given size.
func testPayload(size int) []byte {
	rng := rand.New(rand.NewSource(int64(size) + 1))
	payload := make([]byte, size)
	rng.Read(payload)
	return payload
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const symbolSize = 64
	sizes := []int{0, 1, symbolSize - 1, symbolSize, symbolSize + 1, symbolSize * 3, symbolSize*5 + 7}

	for _, size := range sizes {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			payload := testPayload(size)

			params, symbols, err := Encode(payload, symbolSize, 4)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			decoded, err := Decode(params, symbols)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !bytes.Equal(decoded, payload) {
				t.Errorf("round trip mismatch: got %d bytes, want %d", len(decoded), len(payload))
			}
		})
	}
}

func TestEncodeSymbolAccounting(t *testing.T) {
	payload := testPayload(1000)
	params, symbols, err := Encode(payload, 256, 4)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// 1000 bytes at 256-byte symbols is 4 source symbols.
	if params.SourceSymbols() != 4 {
		t.Errorf("SourceSymbols = %d, want 4", params.SourceSymbols())
	}
	if len(symbols) != 8 {
		t.Errorf("emitted %d symbols, want 8", len(symbols))
	}
	for i, symbol := range symbols {
		if symbol.Index != uint32(i) {
			t.Errorf("symbol %d has index %d", i, symbol.Index)
		}
		if len(symbol.Data) != 256 {
			t.Errorf("symbol %d is %d bytes, want 256", i, len(symbol.Data))
		}
	}
}

func TestDecodeSurvivesAnyRepairBudgetLoss(t *testing.T) {
	const repairCount = 4
	payload := testPayload(700)
	params, symbols, err := Encode(payload, 100, repairCount)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for drop := 0; drop <= repairCount; drop++ {
		t.Run(fmt.Sprintf("drop_%d", drop), func(t *testing.T) {
			// Several random subsets per drop count.
			for trial := 0; trial < 10; trial++ {
				remaining := dropRandom(symbols, drop, rng)
				decoded, err := Decode(params, remaining)
				if err != nil {
					t.Fatalf("Decode with %d dropped failed: %v", drop, err)
				}
				if !bytes.Equal(decoded, payload) {
					t.Fatalf("Decode with %d dropped returned wrong payload", drop)
				}
			}
		})
	}
}

func TestDecodePrefixLoss(t *testing.T) {
	payload := testPayload(500)
	params, symbols, err := Encode(payload, 100, 3)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Dropping the first three symbols (all source) must still decode.
	decoded, err := Decode(params, symbols[3:])
	if err != nil {
		t.Fatalf("Decode after prefix loss failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("prefix-loss decode returned wrong payload")
	}
}

func TestDecodeBeyondBudgetFailsCleanly(t *testing.T) {
	payload := testPayload(600)
	params, symbols, err := Encode(payload, 100, 2)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Dropping repair budget + 1 symbols leaves fewer than k.
	_, err = Decode(params, symbols[3:])
	if !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Decode beyond budget = %v, want ErrDecodeFailed", err)
	}
}

func TestDecodeZeroRepairRequiresFullSet(t *testing.T) {
	payload := testPayload(300)
	params, symbols, err := Encode(payload, 100, 0)
	if err != nil {
		t.Fatalf("Encode with zero repair failed: %v", err)
	}
	if len(symbols) != 3 {
		t.Fatalf("emitted %d symbols, want 3", len(symbols))
	}

	decoded, err := Decode(params, symbols)
	if err != nil {
		t.Fatalf("Decode full set failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("zero-repair decode returned wrong payload")
	}

	if _, err := Decode(params, symbols[1:]); !errors.Is(err, ErrDecodeFailed) {
		t.Errorf("Decode missing source symbol = %v, want ErrDecodeFailed", err)
	}
}

func TestDecodeIgnoresDuplicates(t *testing.T) {
	payload := testPayload(250)
	params, symbols, err := Encode(payload, 100, 2)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	// Duplicating one symbol and dropping two others: the duplicate
	// must not be counted twice.
	subset := []Symbol{symbols[0], symbols[0], symbols[0], symbols[3], symbols[4]}
	decoded, err := Decode(params, subset)
	if err != nil {
		t.Fatalf("Decode with duplicates failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("duplicate-tolerant decode returned wrong payload")
	}
}

func TestDecoderRejectsMalformedSymbols(t *testing.T) {
	params, symbols, err := Encode(testPayload(200), 100, 2)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoder, err := NewDecoder(params)
	if err != nil {
		t.Fatalf("NewDecoder failed: %v", err)
	}

	if _, _, err := decoder.Feed(Symbol{Index: 99, Data: symbols[0].Data}); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("out-of-range index = %v, want ErrInvalidSymbol", err)
	}
	if _, _, err := decoder.Feed(Symbol{Index: 0, Data: []byte("short")}); !errors.Is(err, ErrInvalidSymbol) {
		t.Errorf("wrong shard length = %v, want ErrInvalidSymbol", err)
	}

	// The accumulator must still work after rejected symbols.
	decoded, err := Decode(params, symbols)
	if err != nil || !bytes.Equal(decoded, testPayload(200)) {
		t.Errorf("decode after rejections failed: %v", err)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	params := Params{PayloadSize: 12345, SymbolSize: 1400, TotalSymbols: 15, RepairSymbols: 6}
	blob, err := params.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(blob) != ParamsSize {
		t.Fatalf("params blob is %d bytes, want %d", len(blob), ParamsSize)
	}
	parsed, err := ParseParams(blob)
	if err != nil {
		t.Fatalf("ParseParams failed: %v", err)
	}
	if parsed != params {
		t.Errorf("params round trip: got %+v, want %+v", parsed, params)
	}
}

func TestParseParamsWrongLength(t *testing.T) {
	for _, size := range []int{0, 19, 21, 40} {
		if _, err := ParseParams(make([]byte, size)); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("ParseParams(%d bytes) = %v, want ErrInvalidParams", size, err)
		}
	}
}

func TestNewDecoderRejectsInconsistentParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"zero symbol size", Params{PayloadSize: 10, TotalSymbols: 2, RepairSymbols: 1}},
		{"zero total", Params{PayloadSize: 10, SymbolSize: 10}},
		{"all repair", Params{PayloadSize: 10, SymbolSize: 10, TotalSymbols: 3, RepairSymbols: 3}},
		{"payload too large", Params{PayloadSize: 100, SymbolSize: 10, TotalSymbols: 3, RepairSymbols: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewDecoder(tt.params); !errors.Is(err, ErrInvalidParams) {
				t.Errorf("NewDecoder = %v, want ErrInvalidParams", err)
			}
		})
	}
}

func TestSymbolPacketRoundTrip(t *testing.T) {
	symbol := Symbol{Index: 7, Data: []byte("shard bytes here")}
	packet, err := symbol.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	parsed, err := ParseSymbol(packet)
	if err != nil {
		t.Fatalf("ParseSymbol failed: %v", err)
	}
	if parsed.Index != symbol.Index || !bytes.Equal(parsed.Data, symbol.Data) {
		t.Errorf("symbol round trip: got %+v, want %+v", parsed, symbol)
	}
}

func TestParseSymbolTruncated(t *testing.T) {
	for _, size := range []int{0, 3, 4} {
		if _, err := ParseSymbol(make([]byte, size)); !errors.Is(err, ErrInvalidSymbol) {
			t.Errorf("ParseSymbol(%d bytes) = %v, want ErrInvalidSymbol", size, err)
		}
	}
}

func TestEncodeRejectsBadArguments(t *testing.T) {
	if _, _, err := Encode([]byte("x"), 0, 2); err == nil {
		t.Error("Encode with zero symbol size should fail")
	}
	if _, _, err := Encode([]byte("x"), 100, -1); err == nil {
		t.Error("Encode with negative repair count should fail")
	}
}

func TestEncodeWideShardAlignment(t *testing.T) {
	// 300 shards of 100 bytes exceeds the 256-shard narrow code, so
	// the symbol size must be aligned down to a multiple of 64.
	payload := testPayload(100 * 300)
	params, symbols, err := Encode(payload, 100, 4)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if params.SymbolSize%64 != 0 {
		t.Errorf("wide encode symbol size %d is not 64-byte aligned", params.SymbolSize)
	}

	decoded, err := Decode(params, symbols[2:])
	if err != nil {
		t.Fatalf("wide decode failed: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("wide decode returned wrong payload")
	}
}

// dropRandom returns a copy of symbols with count entries removed at
// random positions.
func dropRandom(symbols []Symbol, count int, rng *rand.Rand) []Symbol {
	remaining := make([]Symbol, len(symbols))
	copy(remaining, symbols)
	rng.Shuffle(len(remaining), func(i, j int) {
		remaining[i], remaining[j] = remaining[j], remaining[i]
	})
	return remaining[count:]
}

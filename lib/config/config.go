// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for bitward.
//
// Configuration is loaded from a single YAML file specified by:
//   - the --config flag passed to the command, or
//   - the BITWARD_CONFIG environment variable.
//
// There are no fallbacks and no automatic discovery. This keeps the
// effective durability parameters deterministic and auditable: a
// sidecar generated on one machine used defaults that are either
// built in or visible in exactly one file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the durability defaults. Every field can be overridden
// per invocation by a CLI flag or positional argument.
type Config struct {
	// MaxSymbolSize bounds the size of each erasure-coded symbol in
	// bytes.
	MaxSymbolSize int `yaml:"max_symbol_size"`

	// RepairSymbols is the redundancy budget: how many symbols may be
	// lost before an artifact becomes unrecoverable.
	RepairSymbols int `yaml:"repair_symbols"`

	// Compression is the payload compression applied before encoding:
	// none, lz4, zstd, or auto.
	Compression string `yaml:"compression"`

	// ProofLedger enables the external append-only CBOR ledger next
	// to each sidecar.
	ProofLedger bool `yaml:"proof_ledger"`
}

// EnvVar names the environment variable consulted when no --config
// flag is given.
const EnvVar = "BITWARD_CONFIG"

// Default returns the built-in defaults: 1400-byte symbols, a repair
// budget of 6, no compression, no external ledger.
func Default() Config {
	return Config{
		MaxSymbolSize: 1400,
		RepairSymbols: 6,
		Compression:   "none",
		ProofLedger:   false,
	}
}

// Load reads and validates a config file. Unknown fields are errors —
// a typo in a durability setting must not silently fall back to a
// default.
func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	// Start from the defaults so a partial file overrides only what
	// it names.
	result := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(&result); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := result.validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return result, nil
}

// Resolve returns the effective configuration: the file named by
// flagPath, else the file named by BITWARD_CONFIG, else the built-in
// defaults.
func Resolve(flagPath string) (Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

func (c Config) validate() error {
	if c.MaxSymbolSize < 1 {
		return fmt.Errorf("max_symbol_size %d is invalid (minimum 1)", c.MaxSymbolSize)
	}
	if c.RepairSymbols < 0 {
		return fmt.Errorf("repair_symbols %d is negative", c.RepairSymbols)
	}
	switch c.Compression {
	case "none", "lz4", "zstd", "auto":
	default:
		return fmt.Errorf("unknown compression %q (want none, lz4, zstd, or auto)", c.Compression)
	}
	return nil
}

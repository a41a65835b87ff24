// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"github.com/spf13/pflag"

	"github.com/bitward/bitward/cmd/bitward/cli"
	"github.com/bitward/bitward/lib/config"
	"github.com/bitward/bitward/lib/durability"
	"github.com/bitward/bitward/lib/sidecar"
)

// engineFlags are the flags shared by every durability command.
type engineFlags struct {
	configPath  string
	verbose     bool
	sealKeyFile string
	ledger      bool
}

func (f *engineFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.configPath, "config", "",
		"config file path (default: $"+config.EnvVar+", else built-in defaults)")
	flagSet.BoolVarP(&f.verbose, "verbose", "v", false,
		"debug logging, including per-artifact scrub-ok lines")
	flagSet.StringVar(&f.sealKeyFile, "seal-key-file", "",
		"32-byte key file; seals sidecars at rest and unseals them on load")
	flagSet.BoolVar(&f.ledger, "ledger", false,
		"append decode proofs to the external CBOR ledger next to the sidecar")
}

// buildEngine resolves the configuration and constructs the engine.
// The --ledger flag forces the proof ledger on even when the config
// leaves it off.
func (f *engineFlags) buildEngine() (*durability.Engine, config.Config, error) {
	configuration, err := config.Resolve(f.configPath)
	if err != nil {
		return nil, config.Config{}, err
	}

	options := durability.Options{
		Logger:      cli.NewCommandLogger(f.verbose),
		ProofLedger: configuration.ProofLedger || f.ledger,
	}
	if f.sealKeyFile != "" {
		key, err := sidecar.LoadSealKey(f.sealKeyFile)
		if err != nil {
			return nil, config.Config{}, err
		}
		options.SealKey = key
	}
	return durability.NewEngine(options), configuration, nil
}

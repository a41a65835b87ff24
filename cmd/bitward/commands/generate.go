// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/bitward/bitward/cmd/bitward/cli"
	"github.com/bitward/bitward/lib/durability"
	"github.com/bitward/bitward/lib/sidecar"
)

func generateCommand() *cli.Command {
	var flags engineFlags
	var compression string

	return &cli.Command{
		Name:    "generate",
		Summary: "Create the durability sidecar for an artifact",
		Description: `Read an artifact, erasure-code it, and write a sidecar holding the
repair symbols, the artifact's content hash, and a fresh scrub status.

The symbol size and repair budget come from the optional positional
arguments, falling back to the config file and then to the built-in
defaults (1400-byte symbols, 6 repair symbols). A failed generate never
leaves a sidecar behind.`,
		Usage: "bitward generate <artifact> <sidecar> <artifact_id> <artifact_type> [max_symbol_size] [repair_count] [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("generate", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.StringVar(&compression, "compression", "",
				"payload compression: none, lz4, zstd, or auto (default: config)")
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Defaults from config",
				Command:     "bitward generate model.bin model.bin.sidecar.json model-v3 weights",
			},
			{
				Description: "Explicit symbol size and repair budget",
				Command:     "bitward generate model.bin model.bin.sidecar.json model-v3 weights 4096 10",
			},
			{
				Description: "Compress the payload before encoding",
				Command:     "bitward generate logs.json logs.sidecar.json logs-2026-08 log-bundle --compression zstd",
			},
		},
		Run: func(args []string) error {
			if len(args) < 4 || len(args) > 6 {
				return cli.Usagef("generate takes 4 to 6 arguments, got %d\n\nUsage: bitward generate <artifact> <sidecar> <artifact_id> <artifact_type> [max_symbol_size] [repair_count]", len(args))
			}
			artifactPath, sidecarPath := args[0], args[1]

			engine, configuration, err := flags.buildEngine()
			if err != nil {
				return err
			}

			params := durability.GenerateParams{
				ArtifactID:    args[2],
				ArtifactType:  args[3],
				MaxSymbolSize: configuration.MaxSymbolSize,
				RepairSymbols: configuration.RepairSymbols,
			}
			if len(args) >= 5 {
				params.MaxSymbolSize, err = strconv.Atoi(args[4])
				if err != nil {
					return cli.Usagef("max_symbol_size %q is not an integer", args[4])
				}
			}
			if len(args) == 6 {
				params.RepairSymbols, err = strconv.Atoi(args[5])
				if err != nil {
					return cli.Usagef("repair_count %q is not an integer", args[5])
				}
			}

			requested := compression
			if requested == "" {
				requested = configuration.Compression
			}
			params.Compression, err = sidecar.ParseCompression(requested)
			if err != nil {
				return cli.Usagef("%v", err)
			}

			artifact, err := os.ReadFile(artifactPath)
			if err != nil {
				return fmt.Errorf("reading artifact: %w", err)
			}

			record, err := engine.Generate(artifact, sidecarPath, params)
			if err != nil {
				return err
			}

			fmt.Printf("%s: k=%d repair=%d overhead=%.3f compression=%s\n",
				sidecarPath,
				record.Codec.K,
				record.Codec.RepairSymbols,
				record.Codec.OverheadRatio,
				record.Codec.Compression)
			return nil
		},
	}
}

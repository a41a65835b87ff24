// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete bitward CLI command tree.
package commands

import (
	"fmt"

	"github.com/bitward/bitward/cmd/bitward/cli"
)

// Version is stamped at link time; "dev" for local builds.
var Version = "dev"

// Root builds and returns the complete bitward CLI command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "bitward",
		Description: `Bitward: erasure-coded durability sidecars for artifacts.

Each artifact gets a sidecar carrying enough forward-error-correction
symbols to reconstruct it after corruption or loss, a content hash as
ground truth, and an append-only trail of decode proofs.`,
		Subcommands: []*cli.Command{
			generateCommand(),
			scrubCommand(),
			drillCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ []string) error {
					fmt.Printf("bitward %s\n", Version)
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Protect an artifact with default parameters",
				Command:     "bitward generate model.bin model.bin.sidecar.json model-v3 weights",
			},
			{
				Description: "Verify an artifact and heal it in place if corrupted",
				Command:     "bitward scrub model.bin model.bin.sidecar.json",
			},
			{
				Description: "Rehearse recovery without touching the artifact",
				Command:     "bitward decode-drill model.bin.sidecar.json /tmp/model.restored",
			},
		},
	}
}

// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bitward/bitward/cmd/bitward/cli"
)

func drillCommand() *cli.Command {
	var flags engineFlags

	return &cli.Command{
		Name:    "decode-drill",
		Summary: "Rehearse recovery from the sidecar alone",
		Description: `Reconstruct the artifact purely from the sidecar's symbols, simulating
the loss of up to two symbols to prove the repair budget holds, and
write the result to the output path. The live artifact is never read or
modified; a decode proof is appended to the sidecar.`,
		Usage: "bitward decode-drill <sidecar> <recovered_output> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode-drill", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Prove a sidecar can still recover its artifact",
				Command:     "bitward decode-drill model.bin.sidecar.json /tmp/model.restored",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Usagef("decode-drill takes exactly 2 arguments, got %d\n\nUsage: bitward decode-drill <sidecar> <recovered_output>", len(args))
			}

			engine, _, err := flags.buildEngine()
			if err != nil {
				return err
			}

			record, err := engine.DecodeDrill(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("%s: recovered %d blocks to %s\n",
				record.ArtifactID, record.Codec.K, args[1])
			return nil
		},
	}
}

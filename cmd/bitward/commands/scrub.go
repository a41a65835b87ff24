// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bitward/bitward/cmd/bitward/cli"
)

func scrubCommand() *cli.Command {
	var flags engineFlags

	return &cli.Command{
		Name:    "scrub",
		Summary: "Verify an artifact and heal it in place if corrupted",
		Description: `Hash the artifact and compare against the sidecar's recorded ground
truth. An intact artifact refreshes the ok timestamp. A corrupted or
missing artifact is reconstructed from the sidecar's repair symbols and
rewritten in place, appending a decode proof.

Exit status is 0 when the artifact is verified or recovered, 1 when
recovery failed or the reconstruction disagrees with the recorded hash.`,
		Usage: "bitward scrub <artifact> <sidecar> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("scrub", pflag.ContinueOnError)
			flags.register(flagSet)
			return flagSet
		},
		Examples: []cli.Example{
			{
				Description: "Routine verification (cron-friendly)",
				Command:     "bitward scrub model.bin model.bin.sidecar.json",
			},
			{
				Description: "Scrub a sealed sidecar",
				Command:     "bitward scrub model.bin model.bin.sidecar --seal-key-file /etc/bitward/seal.key",
			},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Usagef("scrub takes exactly 2 arguments, got %d\n\nUsage: bitward scrub <artifact> <sidecar>", len(args))
			}

			engine, _, err := flags.buildEngine()
			if err != nil {
				return err
			}

			record, err := engine.Scrub(args[0], args[1])
			if err != nil {
				return err
			}

			fmt.Printf("%s: %s\n", args[0], record.ScrubStatus.Status)
			return nil
		},
	}
}

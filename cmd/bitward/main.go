// Copyright 2026 The Bitward Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/bitward/bitward/cmd/bitward/cli"
	"github.com/bitward/bitward/cmd/bitward/commands"
)

func main() {
	if err := run(); err != nil {
		// Usage errors (bad invocation) exit 2; operational failures
		// exit 1. Commands that already printed their own output
		// return an ExitError to pick the code without a redundant
		// "error:" line.
		var usage *cli.UsageError
		if errors.As(err, &usage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", usage)
			os.Exit(2)
		}
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return commands.Root().Execute(os.Args[1:])
}

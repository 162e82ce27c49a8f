// Package main is the entry point for the devkit CLI.
package main

import (
	"os"

	"github.com/devkit-labs/devkit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

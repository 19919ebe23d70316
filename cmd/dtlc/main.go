// Package main provides the dtlc command-line interface.
package main

import (
	"os"

	"github.com/yasurirashmika/dtlc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main is the entry point for the leapch CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/leapch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package main provides the entry point for the cadi CLI.
package main

import (
	"fmt"
	"os"

	"github.com/ConflictingTheories/cadi/cmd/cadi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main is the entry point for the nprint converter.
package main

import (
	"fmt"
	"os"

	"nprint.dev/nprint/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

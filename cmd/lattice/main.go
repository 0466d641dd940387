// Package main provides the lattice CLI.
//
// Usage:
//
//	lattice [flags] <command> [args]
//
// Commands:
//
//	put, del, has, count, list, toggle  - one directed relation index
//	link, unlink, linked                - bidirectional relations
//	init-table                          - create the DynamoDB table
//
// Configuration:
//
//	Flags may also be set in $HOME/.lattice.yaml (or --config) and through
//	LATTICE_* environment variables, e.g. LATTICE_STORE=dynamodb.
package main

import (
	"fmt"
	"os"

	"github.com/jacentio/lattice/cmd/lattice/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Package main provides the entry point for the retrieverctl CLI.
package main

import (
	"os"

	"github.com/runbookhq/retriever/cmd/retrieverctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

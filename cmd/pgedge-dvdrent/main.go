// Package main is the entry point for pgedge-dvdrent.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-dvdrent/internal/cli"

	// Register models
	_ "github.com/pgEdge/pgedge-dvdrent/internal/models/all"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

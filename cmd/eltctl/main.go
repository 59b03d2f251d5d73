// Package main is the entry point for the eltctl CLI.
// eltctl is the developer terminal tool for interacting with the eltorch API.
package main

import (
	"os"

	"eltorch/cmd/eltctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

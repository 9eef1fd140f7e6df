// Package main provides the entry point for the libragen CLI.
package main

import (
	"os"

	"github.com/libragen/libragen/cmd/libragen/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

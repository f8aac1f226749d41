// Package main provides the entry point for the localdocs CLI.
package main

import (
	"os"

	"github.com/localdocs/localdocs/cmd/localdocs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

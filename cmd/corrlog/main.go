// Package main is the entry point for the corrlog CLI tool.
package main

import (
	"os"

	"github.com/good-yellow-bee/corrlog/cmd/corrlog/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

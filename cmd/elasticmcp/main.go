// Package main provides the entry point for the elasticmcp CLI.
package main

import (
	"os"

	"github.com/Aman-CERP/elasticmcp/cmd/elasticmcp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

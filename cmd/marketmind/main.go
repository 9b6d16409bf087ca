// Package main provides the entry point for the marketmind CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/marketmind-ai/marketmind/cmd/marketmind/commands"
)

func main() {
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

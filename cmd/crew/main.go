// Package main provides the entry point for the crew CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/autodevcrew/crew/internal/cli"
)

func main() {
	// Load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

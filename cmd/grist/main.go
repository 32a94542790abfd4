// Package main provides the entry point for the grist CLI.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/hearthside-dev/grist/cmd/grist/cmd"
)

func main() {
	// A missing .env is fine; variables from the environment still apply.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/casefiledev/casefile-mcp/internal/cli"
)

func main() {
	// A missing .env is fine; the environment is the source of truth.
	_ = godotenv.Load()

	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

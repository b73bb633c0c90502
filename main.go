// main is the entry point for the evidence CLI.
package main

import (
	"errors"
	"io/fs"

	"github.com/huangsam/evidence/cmd"
	"github.com/huangsam/evidence/internal/contract"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; environment and flags still apply.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		contract.LogWarn("Ignoring unreadable .env", err)
	}

	if err := cmd.Execute(); err != nil {
		contract.LogFatal("Error executing command", err)
	}
}

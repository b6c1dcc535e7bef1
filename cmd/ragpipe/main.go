package main

import (
	"github.com/joho/godotenv"

	"github.com/parchlab/ragpipe/internal/adapters/driving/cli"
)

func main() {
	// Best effort; a missing .env is the normal case.
	_ = godotenv.Load()

	cli.Execute()
}

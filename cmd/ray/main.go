// Command ray answers questions from local documents and the web.
package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ray/internal/adapters/driving/cli"
)

func main() {
	// A missing .env file is not an error; keys may come from the environment.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/pagecraft-dev/pagecraft/internal/cli"
)

var version = "dev" // Will be set during build

func main() {
	if err := cli.Execute(version); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"recycling-tracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/ariel-frischer/relsync/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/arthur-debert/devplug/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

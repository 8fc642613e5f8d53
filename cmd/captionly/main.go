package main

import (
	"os"

	"github.com/captionly-dev/captionly/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}

package main

import (
	"os"

	"github.com/mirralang/mirra/pkg/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}

package main

import (
	"os"

	"github.com/quillflow/quillflow/cli"
)

func main() {
	if err := cli.RootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

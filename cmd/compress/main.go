package main

import (
	"os"

	"github.com/jo-hoe/imgcompressor/internal/cli"
)

func main() {
	if err := cli.NewCompressCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/lugondev/flashswap/cmd/flashswap/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

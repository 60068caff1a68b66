package main

import (
	"os"

	"libraquant/cmd/libractl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

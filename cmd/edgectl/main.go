package main

import (
	"os"

	"edge-tradesim/cmd/edgectl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

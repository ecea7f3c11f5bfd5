package main

import (
	"os"

	"github.com/rustyeddy/goldsim/cmd/goldsim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

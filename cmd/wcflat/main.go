package main

import (
	"os"

	"github.com/badno/wcflat/cmd/wcflat/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

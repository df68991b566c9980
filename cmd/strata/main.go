package main

import (
	"os"

	"github.com/abramin/strata/cmd/strata/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

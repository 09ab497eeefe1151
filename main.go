package main

import (
	"os"

	"github.com/conneroisu/marklive/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

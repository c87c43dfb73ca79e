package main

import (
	"os"

	"github.com/cadubentzen/gamescope-recorder/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

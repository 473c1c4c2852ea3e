package main

import (
	"os"

	"github.com/OCAP2/handoff/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

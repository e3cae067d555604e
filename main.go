package main

import (
	"os"

	"github.com/kamranahmedse/podsup/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

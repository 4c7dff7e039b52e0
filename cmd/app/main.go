package main

import (
	"os"

	"crisisConnect/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		os.Exit(1)
	}
}

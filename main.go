package main

import (
	"os"

	"github.com/podline/podline/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

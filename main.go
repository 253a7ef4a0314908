package main

import (
	"os"

	"github.com/spigell/bioinfo-job-tracker/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/ragops/banditd/cmd/banditctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/bankctl-dev/bankctl/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

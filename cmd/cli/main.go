package main

import (
	"os"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

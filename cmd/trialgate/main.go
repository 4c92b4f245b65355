package main

import (
	"os"

	"github.com/danieljhkim/trialgate/internal/cli"
)

var version = "dev"

func main() {
	cli.SetVersion(version)

	if err := cli.Execute(); err != nil {
		cli.ReportError(os.Stderr, err)
		os.Exit(1)
	}
}

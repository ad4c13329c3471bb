package main

import (
	"os"

	"github.com/rcliao/munger/internal/cli"
)

func main() {
	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

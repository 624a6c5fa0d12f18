package main

import (
	"os"

	"github.com/gonglijing/alertfi/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"
)

func main() {
	if err := newRootCmd(openMigrator).Execute(); err != nil {
		os.Exit(1)
	}
}

package main

import (
	"os"

	"github.com/rwageo/lcmaplib/log"
)

func main() {
	defer log.Sync()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

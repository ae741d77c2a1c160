package main

import (
	"fmt"
	"os"

	"securities-search/cmd"
	"securities-search/logger"
)

func main() {
	err := cmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

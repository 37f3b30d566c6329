package main

import (
	"fmt"
	"os"

	"taskflow/cmd/sweeper/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// Command verbatim is the entry point for the Verbatim CLI.
package main

import (
	"fmt"
	"os"

	"github.com/verbatim-labs/verbatim-cli/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Command docchat answers questions about one document from the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/0xcro3dile/docchat-go/cmd/docchat/commands"
)

// Version information (set by the release build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command clubsync synchronizes club member records and sales documents
// with an accounting system.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/clubsync/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

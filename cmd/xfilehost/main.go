// Command xfilehost browses a remote file host. Without a subcommand it
// opens the desktop browser.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

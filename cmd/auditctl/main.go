// Command auditctl inspects a running pedcare service's audit log and the
// local SQLite audit store.
package main

import (
	"os"

	"pedcare/cmd/auditctl/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

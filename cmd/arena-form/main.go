package main

import (
	"os"

	"github.com/pogona-hunter/arena-form/cmd/arena-form/commands"
)

// Version is the current version of arena-form
// This must match the git tag when creating releases
const Version = "v0.4.0"

func main() {
	commands.SetVersion(Version)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}

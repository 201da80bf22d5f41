// Command kramtex is the entrypoint for the kramtex texture build CLI.
// It walks a source tree and encodes every stale texture with kram.
package main

import (
	"os"

	"github.com/backmassage/kramtex/internal/cli"
)

// version and commit are set at build time via -ldflags (e.g. Makefile).
var (
	version = "0.1.0-dev"
	commit  = "unknown"
)

func main() {
	cli.SetVersion(version, commit)
	os.Exit(cli.Execute())
}

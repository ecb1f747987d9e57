// Command coordnet ingests a social-media message corpus and computes
// weighted directed coordination networks over its user accounts.
package main

import (
	"os"

	"github.com/kittclouds/coordnet/cmd/coordnet/cmd"
	"github.com/kittclouds/coordnet/internal/corerr"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(corerr.ExitCodeFor(err))
	}
}

// Command pagedb is the storage engine's command-line entrypoint,
// replacing the teacher's single-purpose src/cmd/main.go and
// cmd/server/singleNode/singleNode.go with a cobra command tree (the
// teacher's go.mod already declares spf13/cobra; this is the first
// consumer of it).
package main

import (
	"fmt"
	"os"

	"github.com/pagedb/pagedb/cmd/pagedb/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

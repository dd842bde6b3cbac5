// Command briefs serves and inspects implementation briefs.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/briefs/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

// Command mashup builds a Markov chain from chat exports and text files and
// generates text mixing the selected sources.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/mashup/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

// Command gplan compiles graph traversals into logical plans.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gplan/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// Commands print their own failures; this is cobra's usage errors.
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}

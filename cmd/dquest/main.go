// Command dquest validates quest definitions, simulates questers against
// them and inspects the event journal.
package main

import (
	"fmt"
	"os"

	"github.com/tea2x/evm-d-quest/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}

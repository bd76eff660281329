// Command manualsearch queries the indexed manuals from the command line and
// prints JSON to stdout.
package main

import (
	"fmt"
	"os"

	"github.com/kailas-cloud/manualrag/internal/config"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

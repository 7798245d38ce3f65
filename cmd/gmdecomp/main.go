// Command gmdecomp decompiles every root code entry of a GameMaker data dump.
package main

import (
	"fmt"
	"os"

	"github.com/wippyai/gmdecomp/errors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", errors.Pretty(err))
		os.Exit(1)
	}
}

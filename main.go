package main

import (
	"errors"
	"os"
)

// exitAuthRequired is the exit code for a sync that needs a fresh login,
// distinguishable from ordinary failures so wrappers can react to it.
const exitAuthRequired = 2

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errAuthRequired) {
			os.Exit(exitAuthRequired)
		}

		exitOnError(err)
	}
}

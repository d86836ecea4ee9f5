package main

import (
	"errors"
	"fmt"
	"os"

	"kaizen/cliapp"
)

func main() {
	root := cliapp.NewRootCmd()

	if err := root.Execute(); err != nil {
		var exitErr *cliapp.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Err != nil {
				fmt.Fprintln(os.Stderr, exitErr.Err)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cliapp.ExitUnexpected)
	}

	os.Exit(cliapp.ExitSuccess)
}

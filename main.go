package main

import (
	"os"

	"github.com/zenprocess/open-lovable-cf/cmd"
	"github.com/zenprocess/open-lovable-cf/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}

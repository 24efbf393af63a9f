// Package main is the entry point for the attractor CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/attractor/cmd"
	"github.com/danielolaszy/attractor/internal/logging"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

// main executes the root command and exits non-zero when it fails.
func main() {
	logging.Debug("starting attractor", "version", version, "log_level", logging.LevelFromEnv())

	if err := cmd.Execute(); err != nil {
		logging.Debug("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package main is the entry point for the infractl CLI.
//
// infractl bootstraps managed Kubernetes environments: it discovers or
// creates the cloud resources an environment is built from, establishes the
// trust configuration for the in-cluster provisioning agent, generates the
// declarative import artifacts, publishes them, and drives the ordered
// rollout of the platform applications.
//
// For detailed usage information, run:
//
//	infractl --help
package main

import (
	"fmt"
	"os"

	"github.com/stackinfra/infractl/cmd/infractl/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

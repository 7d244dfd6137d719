package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version information set via ldflags at build time by GoReleaser.
// Example: -ldflags "-X main.Version=1.0.0 -X main.Commit=abc123 -X main.Date=2026-01-14"
var (
	// Version is the semantic version of the application.
	Version = "dev"
	// Commit is the git commit SHA of the build.
	Commit = "none"
	// Date is the build date.
	Date = "unknown"
)

// VersionInfo returns a formatted string with version details.
func VersionInfo() string {
	return fmt.Sprintf("veloxcase-tui %s (commit: %s, built: %s, %s/%s)",
		Version, Commit, Date, runtime.GOOS, runtime.GOARCH)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), VersionInfo())
		},
	}
}

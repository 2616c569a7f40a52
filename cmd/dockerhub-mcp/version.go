package main

import (
	"fmt"
	"runtime"

	"github.com/ferro-labs/dockerhub-mcp/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "%s version: %s\n", version.Name, version.Version)
			_, _ = fmt.Fprintf(out, "  build date: %s\n", version.Date)
			_, _ = fmt.Fprintf(out, "  git commit: %s\n", version.Commit)
			_, _ = fmt.Fprintf(out, "  go version: %s\n", runtime.Version())
		},
	}
}

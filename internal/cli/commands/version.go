package commands

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/leapstack-labs/duckboard/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the DuckBoard version, the Go runtime and the query engines compiled in.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			engines := adapter.Names()
			if len(engines) == 0 {
				engines = []string{"none"}
			}
			_, _ = fmt.Fprintf(out, "DuckBoard v%s\n", version)
			_, _ = fmt.Fprintf(out, "go:      %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			_, _ = fmt.Fprintf(out, "engines: %s\n", strings.Join(engines, ", "))
		},
	}
}

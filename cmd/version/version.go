// Package version prints build information
package version

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set via -ldflags at build time
var (
	Version = "dev"
	Commit  = "none"
)

func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("ns-restart %s (commit %s)\n", Version, Commit)
		},
	}
}

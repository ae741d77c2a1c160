package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"securities-search/settings"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := settings.VersionInformation
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s, built %s, %s)\n",
				settings.CliBinaryName, v.BuildVersion, v.Commit, v.BuildTime, runtime.Version())
			return err
		},
	}
}

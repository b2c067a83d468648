package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/st-keller/employee-client/internal/build"
)

// NewVersionCommand returns the command to get the employeectl version
func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Return the employeectl version",
		Long:  "Return the employeectl version.",
		RunE:  version,
		Args:  cobra.NoArgs,
	}

	return cmd
}

// print out the built version
func version(cmd *cobra.Command, _ []string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "employeectl Version %s Date %s commit id %s\n", build.Version, build.Date, build.Commit)
	return nil
}

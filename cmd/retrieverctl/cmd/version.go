package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runbookhq/retriever/pkg/version"
)

// newVersionCmd reports the build identity of the running retrieverctl
// binary, so it can be matched against the index version metadata it
// produced.
func newVersionCmd() *cobra.Command {
	var jsonOutput bool
	var shortOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the build identity of this binary",
		Long:  `Print the version tag, git commit, build date, and Go toolchain this binary was built with.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if shortOutput {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), version.Short())
				return err
			}

			if jsonOutput {
				snap := version.Current()
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the build identity as JSON")
	cmd.Flags().BoolVar(&shortOutput, "short", false, "Output only the version tag")

	return cmd
}

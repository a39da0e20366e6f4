package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/letsgo-sh/ops/pkg/version"
)

func newVersionCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display detailed version information about the letsgo-ops binary.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateOutput(output); err != nil {
				return err
			}
			build := version.Get()
			switch output {
			case "json":
				return outputJSON(cmd.OutOrStdout(), build)
			case "yaml":
				return outputYAML(cmd.OutOrStdout(), build)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), build)
				return nil
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "Output format (text, json, yaml)")
	return cmd
}

package commands

import (
	"github.com/spf13/cobra"

	"github.com/depstrap/depstrap/depstrap/installer"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	var requirements string
	var installerName string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show what install would do, without executing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := installer.New(installerName, nil); err != nil {
				return err
			}
			m, err := c.loadManifest(requirements)
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), m, installerName)
			return nil
		},
	}

	cmd.Flags().StringVarP(&requirements, "requirements", "r", "", "Path to a TOML requirements manifest (defaults to the embedded list)")
	cmd.Flags().StringVar(&installerName, "installer", "pip", "Package installer to use (pip or uv)")

	return cmd
}

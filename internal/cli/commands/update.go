package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/update"
)

// NewUpdateCmd creates the update command
func NewUpdateCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update the batsim CLI to the latest release",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := update.SelfUpdate(version); err != nil {
				return fmt.Errorf("update failed: %w", err)
			}
			return nil
		},
	}
}

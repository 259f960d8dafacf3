package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/commands"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/update"
)

var version = "dev" // Will be set during build

var rootCmd = &cobra.Command{
	Use:   "batsim",
	Short: "Batsim portal - manage simulation experiments from the terminal",
	Long: `Batsim portal CLI - Manage workloads, platforms, scheduling strategies,
and simulation experiments on a Batsim web portal.

Upload workload and platform files, pair them into scenarios, run
experiments against scheduling strategies, and pull back result metrics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Skip update check for the update and version commands
		if cmd.Name() == "update" || cmd.Name() == "version" {
			return
		}

		update.PrintUpdateNotification(version)
	},
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("batsim version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewLoginCmd())
	rootCmd.AddCommand(commands.NewRegisterCmd())
	rootCmd.AddCommand(commands.NewLogoutCmd())
	rootCmd.AddCommand(commands.NewWhoamiCmd())
	rootCmd.AddCommand(commands.NewSelectPortalCmd())
	rootCmd.AddCommand(commands.NewDashCmd())
	rootCmd.AddCommand(commands.NewWorkloadsCmd())
	rootCmd.AddCommand(commands.NewPlatformsCmd())
	rootCmd.AddCommand(commands.NewStrategiesCmd())
	rootCmd.AddCommand(commands.NewScenariosCmd())
	rootCmd.AddCommand(commands.NewExperimentsCmd())
	rootCmd.AddCommand(commands.NewResultsCmd())
	rootCmd.AddCommand(commands.NewSystemCmd())
	rootCmd.AddCommand(commands.NewUpdateCmd(version))
}

// Execute runs the root command
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

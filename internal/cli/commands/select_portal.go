package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/portalselect"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/userconfig"
)

// NewSelectPortalCmd creates the select-portal command
func NewSelectPortalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select-portal [url-or-alias]",
		Short: "Select the portal to use for commands",
		Long: `Select the portal to use for commands.

If no param is provided, an interactive prompt will be shown.

Examples:
  $ batsim select-portal                          # Interactive selection
  $ batsim select-portal http://lab-portal:8000   # Select by URL
  $ batsim select-portal lab                      # Select by alias`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var urlOrAlias string
			if len(args) > 0 {
				urlOrAlias = args[0]
			}
			return runSelectPortal(urlOrAlias)
		},
	}

	return cmd
}

func runSelectPortal(urlOrAlias string) error {
	// Load project config
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return fmt.Errorf("failed to load config: %w\nRun 'batsim init' to create a configuration file", err)
	}

	var portal *config.Portal

	if urlOrAlias != "" {
		// User provided a URL or alias, find it
		portal, err = portalselect.GetPortalByURLOrAlias(cfg, urlOrAlias)
		if err != nil {
			return err
		}
	} else {
		// Show interactive selection
		portal, err = portalselect.PromptPortalSelection(cfg)
		if err != nil {
			return err
		}
	}

	// Save the selected portal
	if err := userconfig.SetSelectedPortal(portal.URL); err != nil {
		return fmt.Errorf("failed to save selected portal: %w", err)
	}

	fmt.Printf("Selected portal: %s (%s)\n", portal.Alias, portal.URL)
	return nil
}

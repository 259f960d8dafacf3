package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
)

// NewInitCmd creates the init command
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init <portal-url>",
		Short: "Register a Batsim portal in the project configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	portalURL := config.NormalizeURL(args[0])
	if portalURL == "" {
		return fmt.Errorf("portal URL is empty")
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get current directory: %w", err)
	}

	configPath := filepath.Join(currentDir, config.ConfigFileName)

	var cfg *config.Config
	isNewConfig := false

	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		// Load existing config
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load existing config: %w", err)
		}
		fmt.Println("Found existing batsim.json")
	} else {
		// Create new config
		cfg = &config.Config{
			Portals: []config.Portal{},
		}
		isNewConfig = true
	}

	// Check if portal already exists
	portalExists := false
	for _, portal := range cfg.Portals {
		if portal.URL == portalURL {
			portalExists = true
			break
		}
	}

	if portalExists {
		fmt.Printf("Portal %s already exists in batsim.json\n", portalURL)
		return nil
	}

	// Add new portal
	alias := "lab"
	if len(cfg.Portals) > 0 {
		alias = fmt.Sprintf("portal-%d", len(cfg.Portals)+1)
	}

	cfg.Portals = append(cfg.Portals, config.Portal{
		URL:   portalURL,
		Alias: alias,
	})

	// Save to file
	if err := config.Save(configPath, cfg); err != nil {
		return err
	}

	if isNewConfig {
		fmt.Printf("✓ Created ./batsim.json with portal %s (%s)\n", portalURL, alias)
	} else {
		fmt.Printf("✓ Added portal %s (%s) to ./batsim.json\n", portalURL, alias)
	}

	fmt.Println("\nNext steps:")
	fmt.Println("  1. Run 'batsim register' to create an account (if you don't have one)")
	fmt.Println("  2. Run 'batsim login' to authenticate")

	return nil
}

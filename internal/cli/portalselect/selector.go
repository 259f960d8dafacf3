package portalselect

import (
	"fmt"

	"github.com/manifoldco/promptui"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/userconfig"
)

// ResolvePortal determines which portal to use based on the following priority:
// 1. If portalAlias is provided, use that portal
// 2. If user has a selected portal in their local config, use that
// 3. If only one portal in project config, use that
// 4. Otherwise, prompt user to select a portal interactively
func ResolvePortal(projectConfig *config.Config, portalAlias string) (*config.Portal, error) {
	// Priority 1: Use portal alias if provided
	if portalAlias != "" {
		portal, err := projectConfig.GetPortalByAlias(portalAlias)
		if err != nil {
			return nil, err
		}
		return portal, nil
	}

	// Priority 2: Use selected portal from user config
	selectedURL, err := userconfig.GetSelectedPortal()
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}

	if selectedURL != "" {
		portal, err := getPortalByURL(projectConfig, selectedURL)
		if err != nil {
			// Selected portal no longer exists in project config, clear it and continue
			_ = userconfig.SetSelectedPortal("")
		} else {
			return portal, nil
		}
	}

	// Priority 3: If only one portal, use it automatically
	if len(projectConfig.Portals) == 1 {
		portal := &projectConfig.Portals[0]
		// Save it as the selected portal
		if err := userconfig.SetSelectedPortal(portal.URL); err != nil {
			// Don't fail if we can't save, just continue
			fmt.Printf("Warning: failed to save selected portal: %v\n", err)
		}
		return portal, nil
	}

	// Priority 4: Prompt user to select a portal
	portal, err := PromptPortalSelection(projectConfig)
	if err != nil {
		return nil, err
	}

	// Save the selected portal
	if err := userconfig.SetSelectedPortal(portal.URL); err != nil {
		// Don't fail if we can't save, just continue
		fmt.Printf("Warning: failed to save selected portal: %v\n", err)
	}

	return portal, nil
}

// PromptPortalSelection shows an interactive prompt for the user to select a portal
func PromptPortalSelection(projectConfig *config.Config) (*config.Portal, error) {
	if len(projectConfig.Portals) == 0 {
		return nil, fmt.Errorf("no portals configured in batsim.json")
	}

	// Create display labels for each portal
	type portalOption struct {
		Label  string
		Portal *config.Portal
	}

	options := make([]portalOption, len(projectConfig.Portals))
	for i := range projectConfig.Portals {
		portal := &projectConfig.Portals[i]
		label := fmt.Sprintf("%s (%s)", portal.Alias, portal.URL)
		options[i] = portalOption{
			Label:  label,
			Portal: portal,
		}
	}

	templates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "> {{ .Label | cyan }}",
		Inactive: "  {{ .Label }}",
		Selected: "{{ .Label | green }}",
	}

	prompt := promptui.Select{
		Label:     "Select a portal",
		Items:     options,
		Templates: templates,
		Size:      10,
	}

	index, _, err := prompt.Run()
	if err != nil {
		return nil, fmt.Errorf("portal selection cancelled: %w", err)
	}

	return options[index].Portal, nil
}

// getPortalByURL finds a portal in the config by its URL
func getPortalByURL(cfg *config.Config, url string) (*config.Portal, error) {
	for i := range cfg.Portals {
		if cfg.Portals[i].URL == url {
			return &cfg.Portals[i], nil
		}
	}
	return nil, fmt.Errorf("portal with URL '%s' not found in project config", url)
}

// GetPortalByURLOrAlias finds a portal by URL or alias
func GetPortalByURLOrAlias(cfg *config.Config, urlOrAlias string) (*config.Portal, error) {
	// First try by URL
	for i := range cfg.Portals {
		if cfg.Portals[i].URL == urlOrAlias {
			return &cfg.Portals[i], nil
		}
	}

	// Then try by alias
	for i := range cfg.Portals {
		if cfg.Portals[i].Alias == urlOrAlias {
			return &cfg.Portals[i], nil
		}
	}

	return nil, fmt.Errorf("portal with URL or alias '%s' not found", urlOrAlias)
}

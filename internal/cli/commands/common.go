package commands

import (
	"fmt"
	"strconv"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/auth"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/config"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/portalselect"
	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/session"
)

// getSelectedPortal loads the config and returns the selected portal.
// This is common logic used by most commands.
func getSelectedPortal(portalAlias string) (*config.Portal, error) {
	// Load config
	cfg, err := config.LoadFromCurrentDir()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w\nRun 'batsim init' to create a configuration file", err)
	}

	// Resolve which portal to use
	portal, err := portalselect.ResolvePortal(cfg, portalAlias)
	if err != nil {
		return nil, err
	}

	if portal.URL == "" {
		return nil, fmt.Errorf("portal URL is empty. Please edit batsim.json and add a valid portal URL")
	}

	return portal, nil
}

// newSession builds a session manager bound to the portal
func newSession(portal *config.Portal) *session.Manager {
	apiClient := client.New(config.NormalizeURL(portal.URL))
	return session.NewManager(apiClient, auth.Default)
}

// requireSession resolves the selected portal and restores an authenticated
// session from storage. Commands that talk to protected endpoints go through
// here; an unauthenticated session is rejected before any entity request.
func requireSession(portalAlias string) (*session.Manager, *config.Portal, error) {
	portal, err := getSelectedPortal(portalAlias)
	if err != nil {
		return nil, nil, err
	}

	sess := newSession(portal)
	state, err := sess.CheckAuth()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to verify session: %w", err)
	}
	if state.Status() != session.StatusAuthenticated {
		return nil, nil, fmt.Errorf("not authenticated with %s. Run 'batsim login' first", portal.URL)
	}

	return sess, portal, nil
}

// parseID parses a positional numeric entity ID argument
func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id '%s'", arg)
	}
	return uint(id), nil
}

// optString returns a *string for PUT bodies, nil when the flag was not set
func optString(changed bool, value string) *string {
	if !changed {
		return nil
	}
	return &value
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Discard the stored session for the selected portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func runLogout() error {
	portal, err := getSelectedPortal("")
	if err != nil {
		return err
	}

	sess := newSession(portal)
	if err := sess.Logout(); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	fmt.Printf("✓ Logged out of %s (%s)\n", portal.Alias, portal.URL)
	return nil
}

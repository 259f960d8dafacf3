package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/session"
)

// NewWhoamiCmd creates the whoami command
func NewWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session state for the selected portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami()
		},
	}
}

func runWhoami() error {
	portal, err := getSelectedPortal("")
	if err != nil {
		return err
	}

	sess := newSession(portal)
	state, err := sess.CheckAuth()
	if err != nil {
		return fmt.Errorf("failed to verify session: %w", err)
	}

	if state.Status() != session.StatusAuthenticated {
		fmt.Printf("Not authenticated with %s (%s)\n", portal.Alias, portal.URL)
		fmt.Println("\nRun 'batsim login' to authenticate.")
		return nil
	}

	fmt.Printf("Authenticated with %s (%s)\n\n", portal.Alias, portal.URL)
	fmt.Printf("  User:  %s\n", state.User.Username)
	fmt.Printf("  Email: %s\n", state.User.Email)
	fmt.Printf("  Role:  %s\n", state.User.Role)

	return nil
}

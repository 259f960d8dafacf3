package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewLoginCmd creates the login command
func NewLoginCmd() *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate with a Batsim portal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set BATSIM_USERNAME)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set BATSIM_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(username, password string) error {
	// Check for environment variables (useful for CI/CD)
	if username == "" {
		username = os.Getenv("BATSIM_USERNAME")
	}
	if password == "" {
		password = os.Getenv("BATSIM_PASSWORD")
	}

	// Validate username
	if username == "" {
		return fmt.Errorf("username is required (use --username flag or BATSIM_USERNAME env var)")
	}

	portal, err := getSelectedPortal("")
	if err != nil {
		return err
	}

	// Prompt for password if not provided via flag or env var
	if password == "" {
		// Check if stdin is a terminal (not piped)
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println() // New line after password input
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or BATSIM_PASSWORD env var)")
		}
	}

	sess := newSession(portal)

	fmt.Printf("Logging in to %s (%s)...\n", portal.Alias, portal.URL)

	user, err := sess.Login(username, password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println("✓ Login successful!")
	fmt.Printf("  User: %s (%s)\n", user.Username, user.Email)
	if user.Role == "admin" {
		fmt.Println("  Role: Admin")
	}

	return nil
}

package commands

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// NewRegisterCmd creates the register command
func NewRegisterCmd() *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a new portal account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegister(username, email, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (or set BATSIM_USERNAME)")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set BATSIM_PASSWORD, will prompt if not provided)")

	return cmd
}

func runRegister(username, email, password string) error {
	if username == "" {
		username = os.Getenv("BATSIM_USERNAME")
	}
	if password == "" {
		password = os.Getenv("BATSIM_PASSWORD")
	}

	if username == "" {
		return fmt.Errorf("username is required (use --username flag or BATSIM_USERNAME env var)")
	}
	if email == "" {
		return fmt.Errorf("email is required (use --email flag)")
	}

	portal, err := getSelectedPortal("")
	if err != nil {
		return err
	}

	if password == "" {
		if term.IsTerminal(int(syscall.Stdin)) {
			fmt.Print("Password: ")
			bytePassword, err := term.ReadPassword(int(syscall.Stdin))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			password = string(bytePassword)
			fmt.Println()
		} else {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or BATSIM_PASSWORD env var)")
		}
	}

	sess := newSession(portal)

	fmt.Printf("Registering on %s (%s)...\n", portal.Alias, portal.URL)

	user, err := sess.Register(username, email, password)
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}

	fmt.Println("✓ Account created!")
	fmt.Printf("  User: %s (%s)\n", user.Username, user.Email)
	fmt.Println("\nRun 'batsim login' to authenticate.")

	return nil
}

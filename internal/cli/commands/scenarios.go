package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewScenariosCmd creates the scenarios command family
func NewScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "scenarios",
		Aliases: []string{"scenario", "sc"},
		Short:   "Manage scenarios (workload + platform pairs)",
	}

	cmd.AddCommand(newScenariosListCmd())
	cmd.AddCommand(newScenariosGetCmd())
	cmd.AddCommand(newScenariosCreateCmd())
	cmd.AddCommand(newScenariosUpdateCmd())
	cmd.AddCommand(newScenariosDeleteCmd())

	return cmd
}

func newScenariosListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			scenarios, err := sess.Client().ListScenarios(skip, limit)
			if err != nil {
				return err
			}

			if len(scenarios) == 0 {
				fmt.Println("No scenarios found.")
				fmt.Println("\nCreate one with: batsim scenarios create <name> --workload <id> --platform <id>")
				return nil
			}

			fmt.Printf("Scenarios on %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tWORKLOAD\tPLATFORM\tCREATED BY\tCREATED AT")
			fmt.Fprintln(w, "──\t────\t────────\t────────\t──────────\t──────────")
			for _, scenario := range scenarios {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					scenario.ID,
					scenario.Name,
					scenario.WorkloadName,
					scenario.PlatformName,
					scenario.CreatorUsername,
					scenario.CreatedAt,
				)
			}
			w.Flush()

			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of records to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to return")
	cmd.Flags().StringVar(&portalAlias, "portal", "", "Portal alias (uses selected portal if not specified)")

	return cmd
}

func newScenariosGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			scenario, err := sess.Client().GetScenario(id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%d\n", scenario.ID)
			fmt.Fprintf(w, "Name:\t%s\n", scenario.Name)
			if scenario.Description != "" {
				fmt.Fprintf(w, "Description:\t%s\n", scenario.Description)
			}
			fmt.Fprintf(w, "Workload:\t%s (id %d)\n", scenario.WorkloadName, scenario.WorkloadID)
			fmt.Fprintf(w, "Platform:\t%s (id %d)\n", scenario.PlatformName, scenario.PlatformID)
			fmt.Fprintf(w, "Created by:\t%s\n", scenario.CreatorUsername)
			fmt.Fprintf(w, "Created at:\t%s\n", scenario.CreatedAt)
			w.Flush()

			return nil
		},
	}
}

func newScenariosCreateCmd() *cobra.Command {
	var description string
	var workloadID, platformID uint

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a scenario pairing a workload with a platform",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if workloadID == 0 || platformID == 0 {
				return fmt.Errorf("both --workload and --platform are required")
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			scenario, err := sess.Client().CreateScenario(client.CreateScenarioRequest{
				Name:        args[0],
				Description: description,
				WorkloadID:  workloadID,
				PlatformID:  platformID,
			})
			if err != nil {
				return err
			}

			fmt.Printf("✓ Scenario '%s' created (id %d)\n", scenario.Name, scenario.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Scenario description")
	cmd.Flags().UintVar(&workloadID, "workload", 0, "Workload ID")
	cmd.Flags().UintVar(&platformID, "platform", 0, "Platform ID")

	return cmd
}

func newScenariosUpdateCmd() *cobra.Command {
	var name, description string
	var workloadID, platformID uint

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a scenario",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			req := client.UpdateScenarioRequest{
				Name:        optString(cmd.Flags().Changed("name"), name),
				Description: optString(cmd.Flags().Changed("description"), description),
			}
			if cmd.Flags().Changed("workload") {
				req.WorkloadID = &workloadID
			}
			if cmd.Flags().Changed("platform") {
				req.PlatformID = &platformID
			}

			scenario, err := sess.Client().UpdateScenario(id, req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Scenario %d updated\n", scenario.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().UintVar(&workloadID, "workload", 0, "New workload ID")
	cmd.Flags().UintVar(&platformID, "platform", 0, "New platform ID")

	return cmd
}

func newScenariosDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a scenario",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			if err := sess.Client().DeleteScenario(id); err != nil {
				return err
			}

			fmt.Printf("✓ Scenario %d deleted\n", id)
			return nil
		},
	}
}

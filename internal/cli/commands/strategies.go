package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewStrategiesCmd creates the strategies command family
func NewStrategiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "strategies",
		Aliases: []string{"strategy", "st"},
		Short:   "Manage scheduling strategies",
	}

	cmd.AddCommand(newStrategiesListCmd())
	cmd.AddCommand(newStrategiesGetCmd())
	cmd.AddCommand(newStrategiesCreateCmd())
	cmd.AddCommand(newStrategiesUpdateCmd())
	cmd.AddCommand(newStrategiesReplaceFileCmd())
	cmd.AddCommand(newStrategiesDeleteCmd())
	cmd.AddCommand(newStrategiesDownloadCmd())

	return cmd
}

func newStrategiesListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List strategies",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			strategies, err := sess.Client().ListStrategies(skip, limit)
			if err != nil {
				return err
			}

			if len(strategies) == 0 {
				fmt.Println("No strategies found.")
				fmt.Println("\nUpload one with: batsim strategies create <name> <script>")
				return nil
			}

			fmt.Printf("Strategies on %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tENTRY\tFILES\tCREATED BY\tCREATED AT")
			fmt.Fprintln(w, "──\t────\t─────\t─────\t──────────\t──────────")
			for _, strategy := range strategies {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
					strategy.ID,
					strategy.Name,
					strategy.MainEntry,
					strategy.NbFiles,
					strategy.CreatorUsername,
					strategy.CreatedAt,
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

func newStrategiesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one strategy",
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

			strategy, err := sess.Client().GetStrategy(id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%d\n", strategy.ID)
			fmt.Fprintf(w, "Name:\t%s\n", strategy.Name)
			if strategy.Description != "" {
				fmt.Fprintf(w, "Description:\t%s\n", strategy.Description)
			}
			fmt.Fprintf(w, "Entry point:\t%s\n", strategy.MainEntry)
			fmt.Fprintf(w, "Files:\t%d\n", strategy.NbFiles)
			fmt.Fprintf(w, "File:\t%s (%d bytes, %s)\n", strategy.FilePath, strategy.FileSize, strategy.FileType)
			fmt.Fprintf(w, "Created by:\t%s\n", strategy.CreatorUsername)
			fmt.Fprintf(w, "Created at:\t%s\n", strategy.CreatedAt)
			w.Flush()

			return nil
		},
	}
}

func newStrategiesCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name> <script>",
		Short: "Upload a new scheduling strategy",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			strategy, err := sess.Client().CreateStrategy(args[0], description, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Strategy '%s' created (id %d)\n", strategy.Name, strategy.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Strategy description")

	return cmd
}

func newStrategiesUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update strategy metadata",
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

			req := client.UpdateAssetRequest{
				Name:        optString(cmd.Flags().Changed("name"), name),
				Description: optString(cmd.Flags().Changed("description"), description),
			}

			strategy, err := sess.Client().UpdateStrategy(id, req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Strategy %d updated\n", strategy.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func newStrategiesReplaceFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace-file <id> <script>",
		Short: "Replace the stored strategy script",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			strategy, err := sess.Client().ReplaceStrategyFile(id, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Strategy %d file replaced (%d bytes)\n", strategy.ID, strategy.FileSize)
			return nil
		},
	}
}

func newStrategiesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a strategy",
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

			if err := sess.Client().DeleteStrategy(id); err != nil {
				return err
			}

			fmt.Printf("✓ Strategy %d deleted\n", id)
			return nil
		},
	}
}

func newStrategiesDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Show the stored file location of a strategy",
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

			dl, err := sess.Client().DownloadStrategy(id)
			if err != nil {
				return err
			}

			fmt.Printf("File: %s\nPath: %s\n", dl.FileName, dl.FilePath)
			return nil
		},
	}
}

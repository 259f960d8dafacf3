package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewWorkloadsCmd creates the workloads command family
func NewWorkloadsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workloads",
		Aliases: []string{"workload", "wl"},
		Short:   "Manage workload descriptions",
	}

	cmd.AddCommand(newWorkloadsListCmd())
	cmd.AddCommand(newWorkloadsGetCmd())
	cmd.AddCommand(newWorkloadsCreateCmd())
	cmd.AddCommand(newWorkloadsUpdateCmd())
	cmd.AddCommand(newWorkloadsReplaceFileCmd())
	cmd.AddCommand(newWorkloadsDeleteCmd())
	cmd.AddCommand(newWorkloadsDownloadCmd())

	return cmd
}

func newWorkloadsListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List workloads",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			workloads, err := sess.Client().ListWorkloads(skip, limit)
			if err != nil {
				return err
			}

			if len(workloads) == 0 {
				fmt.Println("No workloads found.")
				fmt.Println("\nUpload one with: batsim workloads create <name> <file.json>")
				return nil
			}

			fmt.Printf("Workloads on %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tJOBS RES\tSIZE\tCREATED BY\tCREATED AT")
			fmt.Fprintln(w, "──\t────\t────────\t────\t──────────\t──────────")
			for _, workload := range workloads {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n",
					workload.ID,
					workload.Name,
					workload.NbRes,
					workload.FileSize,
					workload.CreatorUsername,
					workload.CreatedAt,
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

func newWorkloadsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one workload",
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

			workload, err := sess.Client().GetWorkload(id)
			if err != nil {
				return err
			}

			printWorkload(workload)
			return nil
		},
	}
}

func newWorkloadsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name> <file.json>",
		Short: "Upload a new workload description",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			workload, err := sess.Client().CreateWorkload(args[0], description, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Workload '%s' created (id %d)\n", workload.Name, workload.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Workload description")

	return cmd
}

func newWorkloadsUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update workload metadata",
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

			workload, err := sess.Client().UpdateWorkload(id, req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Workload %d updated\n", workload.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func newWorkloadsReplaceFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace-file <id> <file.json>",
		Short: "Replace the stored workload file",
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

			workload, err := sess.Client().ReplaceWorkloadFile(id, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Workload %d file replaced (%d bytes)\n", workload.ID, workload.FileSize)
			return nil
		},
	}
}

func newWorkloadsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a workload",
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

			if err := sess.Client().DeleteWorkload(id); err != nil {
				return err
			}

			fmt.Printf("✓ Workload %d deleted\n", id)
			return nil
		},
	}
}

func newWorkloadsDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Show the stored file location of a workload",
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

			dl, err := sess.Client().DownloadWorkload(id)
			if err != nil {
				return err
			}

			fmt.Printf("File: %s\nPath: %s\n", dl.FileName, dl.FilePath)
			return nil
		},
	}
}

func printWorkload(workload *client.Workload) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", workload.ID)
	fmt.Fprintf(w, "Name:\t%s\n", workload.Name)
	if workload.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", workload.Description)
	}
	fmt.Fprintf(w, "Resources:\t%d\n", workload.NbRes)
	fmt.Fprintf(w, "File:\t%s (%d bytes, %s)\n", workload.FilePath, workload.FileSize, workload.FileType)
	fmt.Fprintf(w, "Created by:\t%s\n", workload.CreatorUsername)
	fmt.Fprintf(w, "Created at:\t%s\n", workload.CreatedAt)
	w.Flush()
}

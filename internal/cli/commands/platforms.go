package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewPlatformsCmd creates the platforms command family
func NewPlatformsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "platforms",
		Aliases: []string{"platform", "pf"},
		Short:   "Manage platform topologies",
	}

	cmd.AddCommand(newPlatformsListCmd())
	cmd.AddCommand(newPlatformsGetCmd())
	cmd.AddCommand(newPlatformsCreateCmd())
	cmd.AddCommand(newPlatformsUpdateCmd())
	cmd.AddCommand(newPlatformsReplaceFileCmd())
	cmd.AddCommand(newPlatformsDeleteCmd())
	cmd.AddCommand(newPlatformsDownloadCmd())

	return cmd
}

func newPlatformsListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			platforms, err := sess.Client().ListPlatforms(skip, limit)
			if err != nil {
				return err
			}

			if len(platforms) == 0 {
				fmt.Println("No platforms found.")
				fmt.Println("\nUpload one with: batsim platforms create <name> <platform.xml>")
				return nil
			}

			fmt.Printf("Platforms on %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tHOSTS\tCLUSTERS\tCREATED BY\tCREATED AT")
			fmt.Fprintln(w, "──\t────\t─────\t────────\t──────────\t──────────")
			for _, platform := range platforms {
				fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\t%s\n",
					platform.ID,
					platform.Name,
					platform.NbHosts,
					platform.NbClusters,
					platform.CreatorUsername,
					platform.CreatedAt,
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

func newPlatformsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one platform",
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

			platform, err := sess.Client().GetPlatform(id)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%d\n", platform.ID)
			fmt.Fprintf(w, "Name:\t%s\n", platform.Name)
			if platform.Description != "" {
				fmt.Fprintf(w, "Description:\t%s\n", platform.Description)
			}
			fmt.Fprintf(w, "Hosts:\t%d\n", platform.NbHosts)
			fmt.Fprintf(w, "Clusters:\t%d\n", platform.NbClusters)
			fmt.Fprintf(w, "File:\t%s (%d bytes, %s)\n", platform.FilePath, platform.FileSize, platform.FileType)
			fmt.Fprintf(w, "Created by:\t%s\n", platform.CreatorUsername)
			fmt.Fprintf(w, "Created at:\t%s\n", platform.CreatedAt)
			w.Flush()

			return nil
		},
	}
}

func newPlatformsCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name> <platform.xml>",
		Short: "Upload a new platform topology",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			platform, err := sess.Client().CreatePlatform(args[0], description, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Platform '%s' created (id %d)\n", platform.Name, platform.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Platform description")

	return cmd
}

func newPlatformsUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update platform metadata",
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

			platform, err := sess.Client().UpdatePlatform(id, req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Platform %d updated\n", platform.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func newPlatformsReplaceFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace-file <id> <platform.xml>",
		Short: "Replace the stored platform file",
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

			platform, err := sess.Client().ReplacePlatformFile(id, args[1])
			if err != nil {
				return err
			}

			fmt.Printf("✓ Platform %d file replaced (%d bytes)\n", platform.ID, platform.FileSize)
			return nil
		},
	}
}

func newPlatformsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a platform",
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

			if err := sess.Client().DeletePlatform(id); err != nil {
				return err
			}

			fmt.Printf("✓ Platform %d deleted\n", id)
			return nil
		},
	}
}

func newPlatformsDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <id>",
		Short: "Show the stored file location of a platform",
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

			dl, err := sess.Client().DownloadPlatform(id)
			if err != nil {
				return err
			}

			fmt.Printf("File: %s\nPath: %s\n", dl.FileName, dl.FilePath)
			return nil
		},
	}
}

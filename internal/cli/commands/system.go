package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewSystemCmd creates the system probe command family
func NewSystemCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "system",
		Aliases: []string{"sys"},
		Short:   "Check the portal service and its host resources",
	}

	cmd.AddCommand(newSystemStatusCmd())
	cmd.AddCommand(newSystemResourcesCmd())

	return cmd
}

func newSystemStatusCmd() *cobra.Command {
	var portalAlias string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show portal service status",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			status, err := sess.Client().GetSystemStatus()
			if err != nil {
				return err
			}

			fmt.Printf("Portal %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "Service:\t%s\n", status.Service)
			fmt.Fprintf(w, "Version:\t%s\n", status.Version)
			fmt.Fprintf(w, "Status:\t%s\n", status.Status)
			fmt.Fprintf(w, "Database:\t%s\n", status.Database)
			fmt.Fprintf(w, "Uptime:\t%s\n", (time.Duration(status.UptimeSeconds) * time.Second).String())
			fmt.Fprintf(w, "Timestamp:\t%s\n", status.Timestamp)
			w.Flush()

			return nil
		},
	}

	cmd.Flags().StringVar(&portalAlias, "portal", "", "Portal alias (uses selected portal if not specified)")

	return cmd
}

func newSystemResourcesCmd() *cobra.Command {
	var portalAlias string

	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Show portal host CPU, memory, and disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			metrics, err := sess.Client().GetSystemResources()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "CPUs:\t%d\n", metrics.CPUCount)
			fmt.Fprintf(w, "Memory:\t%.1f GB used / %.1f GB total (%.1f GB free)\n",
				metrics.MemoryUsedGB, metrics.MemoryTotalGB, metrics.MemoryFreeGB)
			fmt.Fprintf(w, "Disk:\t%.1f GB used / %.1f GB total (%.1f%% used)\n",
				metrics.DiskUsedGB, metrics.DiskTotalGB, metrics.DiskUsedPercent)
			fmt.Fprintf(w, "Disk available:\t%.1f GB\n", metrics.DiskAvailableGB)
			w.Flush()

			return nil
		},
	}

	cmd.Flags().StringVar(&portalAlias, "portal", "", "Portal alias (uses selected portal if not specified)")

	return cmd
}

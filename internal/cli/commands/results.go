package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewResultsCmd creates the results command family
func NewResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "results",
		Aliases: []string{"result", "res"},
		Short:   "Inspect simulation results and analytics",
	}

	cmd.AddCommand(newResultsListCmd())
	cmd.AddCommand(newResultsGetCmd())
	cmd.AddCommand(newResultsByExperimentCmd())
	cmd.AddCommand(newResultsDeleteCmd())
	cmd.AddCommand(newResultsAnalyticsCmd())

	return cmd
}

func newResultsListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List results",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			results, err := sess.Client().ListResults(skip, limit)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			fmt.Printf("Results on %s (%s):\n\n", portal.Alias, portal.URL)
			printResultTable(results)
			return nil
		},
	}

	cmd.Flags().IntVar(&skip, "skip", 0, "Number of records to skip")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records to return")
	cmd.Flags().StringVar(&portalAlias, "portal", "", "Portal alias (uses selected portal if not specified)")

	return cmd
}

func newResultsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one result",
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

			result, err := sess.Client().GetResult(id)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}
}

func newResultsByExperimentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "by-experiment <experiment-id>",
		Short: "List results recorded for an experiment",
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

			results, err := sess.Client().ResultsByExperiment(id)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Printf("No results for experiment %d yet.\n", id)
				return nil
			}

			printResultTable(results)
			return nil
		},
	}
}

func newResultsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a result and its stored files",
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

			if err := sess.Client().DeleteResult(id); err != nil {
				return err
			}

			fmt.Printf("✓ Result %d deleted\n", id)
			return nil
		},
	}
}

func newResultsAnalyticsCmd() *cobra.Command {
	var startDate, endDate string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show aggregated metrics across all results",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			analytics, err := sess.Client().GetAnalytics(startDate, endDate)
			if err != nil {
				return err
			}

			printAnalytics(analytics)
			return nil
		},
	}

	cmd.Flags().StringVar(&startDate, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDate, "end", "", "End date (YYYY-MM-DD)")

	return cmd
}

func printResultTable(results []client.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEXPERIMENT\tMAKESPAN\tAVG WAIT\tUTILIZATION\tJOBS\tCREATED AT")
	fmt.Fprintln(w, "──\t──────────\t────────\t────────\t───────────\t────\t──────────")
	for _, result := range results {
		fmt.Fprintf(w, "%d\t%s\t%.2f\t%.2f\t%.1f%%\t%d/%d\t%s\n",
			result.ID,
			result.ExperimentName,
			result.Makespan,
			result.AverageWaitingTime,
			result.ResourceUtilization*100,
			result.CompletedJobs,
			result.TotalJobs,
			result.CreatedAt,
		)
	}
	w.Flush()
}

func printResult(result *client.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", result.ID)
	fmt.Fprintf(w, "Experiment:\t%s (id %d)\n", result.ExperimentName, result.ExperimentID)
	if result.ScenarioName != "" {
		fmt.Fprintf(w, "Scenario:\t%s\n", result.ScenarioName)
	}
	if result.StrategyName != "" {
		fmt.Fprintf(w, "Strategy:\t%s\n", result.StrategyName)
	}
	fmt.Fprintf(w, "Simulation time:\t%.2fs\n", result.SimulationTime)
	fmt.Fprintf(w, "Makespan:\t%.2f\n", result.Makespan)
	fmt.Fprintf(w, "Avg waiting time:\t%.2f\n", result.AverageWaitingTime)
	fmt.Fprintf(w, "Avg turnaround:\t%.2f\n", result.AverageTurnaroundTime)
	fmt.Fprintf(w, "Utilization:\t%.1f%%\n", result.ResourceUtilization*100)
	fmt.Fprintf(w, "Jobs:\t%d completed, %d failed of %d\n",
		result.CompletedJobs, result.FailedJobs, result.TotalJobs)
	if result.ResultFilePath != "" {
		fmt.Fprintf(w, "Result file:\t%s\n", result.ResultFilePath)
	}
	if result.LogFilePath != "" {
		fmt.Fprintf(w, "Log file:\t%s\n", result.LogFilePath)
	}
	fmt.Fprintf(w, "Created at:\t%s\n", result.CreatedAt)
	w.Flush()
}

func printAnalytics(analytics *client.Analytics) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total results:\t%d\n", analytics.TotalResults)
	fmt.Fprintf(w, "Total experiments:\t%d\n", analytics.TotalExperiments)
	fmt.Fprintf(w, "Avg makespan:\t%.2f\n", analytics.AvgMakespan)
	fmt.Fprintf(w, "Avg waiting time:\t%.2f\n", analytics.AvgWaitingTime)
	fmt.Fprintf(w, "Avg turnaround:\t%.2f\n", analytics.AvgTurnaroundTime)
	fmt.Fprintf(w, "Avg utilization:\t%.1f%%\n", analytics.AvgResourceUtilization*100)
	fmt.Fprintf(w, "Jobs:\t%d total, %d completed, %d failed\n",
		analytics.TotalJobs, analytics.CompletedJobs, analytics.FailedJobs)
	fmt.Fprintf(w, "Success rate:\t%.1f%%\n", analytics.SuccessRate)
	w.Flush()

	if len(analytics.TopStrategies) > 0 {
		fmt.Println("\nTop strategies:")
		for _, entry := range analytics.TopStrategies {
			fmt.Printf("  %s (%d results)\n", entry.Name, entry.Count)
		}
	}
	if len(analytics.TopScenarios) > 0 {
		fmt.Println("\nTop scenarios:")
		for _, entry := range analytics.TopScenarios {
			fmt.Printf("  %s (%d results)\n", entry.Name, entry.Count)
		}
	}
	if len(analytics.ResultsByDate) > 0 {
		fmt.Println("\nResults by date:")
		for _, entry := range analytics.ResultsByDate {
			fmt.Printf("  %s  %d\n", entry.Date, entry.Count)
		}
	}
}

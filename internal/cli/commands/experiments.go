package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hpcc-hcmut/batsim-web-portal/internal/cli/client"
)

// NewExperimentsCmd creates the experiments command family
func NewExperimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "experiments",
		Aliases: []string{"experiment", "exp"},
		Short:   "Manage simulation experiments",
	}

	cmd.AddCommand(newExperimentsListCmd())
	cmd.AddCommand(newExperimentsGetCmd())
	cmd.AddCommand(newExperimentsCreateCmd())
	cmd.AddCommand(newExperimentsUpdateCmd())
	cmd.AddCommand(newExperimentsDeleteCmd())
	cmd.AddCommand(newExperimentsStartCmd())
	cmd.AddCommand(newExperimentsStopCmd())
	cmd.AddCommand(newExperimentsStatusCmd())
	cmd.AddCommand(newExperimentsWatchCmd())

	return cmd
}

func newExperimentsListCmd() *cobra.Command {
	var skip, limit int
	var portalAlias string

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List experiments",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, portal, err := requireSession(portalAlias)
			if err != nil {
				return err
			}

			experiments, err := sess.Client().ListExperiments(skip, limit)
			if err != nil {
				return err
			}

			if len(experiments) == 0 {
				fmt.Println("No experiments found.")
				fmt.Println("\nCreate one with: batsim experiments create <name> --scenario <id> --strategy <id>")
				return nil
			}

			fmt.Printf("Experiments on %s (%s):\n\n", portal.Alias, portal.URL)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSCENARIO\tSTRATEGY\tSTATUS\tPROGRESS\tCREATED BY")
			fmt.Fprintln(w, "──\t────\t────────\t────────\t──────\t────────\t──────────")
			for _, experiment := range experiments {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
					experiment.ID,
					experiment.Name,
					experiment.ScenarioName,
					experiment.StrategyName,
					experiment.Status,
					experiment.ProgressPercentage,
					experiment.CreatorUsername,
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

func newExperimentsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one experiment",
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

			experiment, err := sess.Client().GetExperiment(id)
			if err != nil {
				return err
			}

			printExperiment(experiment)
			return nil
		},
	}
}

// loadExperimentConfig reads a YAML config file and converts it to the JSON
// blob the portal stores alongside the experiment
func loadExperimentConfig(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var parsed map[string]interface{}
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	jsonData, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return jsonData, nil
}

func newExperimentsCreateCmd() *cobra.Command {
	var description, configPath string
	var scenarioID, strategyID uint

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an experiment from a scenario and a strategy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if scenarioID == 0 || strategyID == 0 {
				return fmt.Errorf("both --scenario and --strategy are required")
			}

			req := client.CreateExperimentRequest{
				Name:        args[0],
				Description: description,
				ScenarioID:  scenarioID,
				StrategyID:  strategyID,
			}

			if configPath != "" {
				config, err := loadExperimentConfig(configPath)
				if err != nil {
					return err
				}
				req.Config = config
			}

			sess, _, err := requireSession("")
			if err != nil {
				return err
			}

			experiment, err := sess.Client().CreateExperiment(req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Experiment '%s' created (id %d, status %s)\n", experiment.Name, experiment.ID, experiment.Status)
			fmt.Printf("\nStart it with: batsim experiments start %d\n", experiment.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "Experiment description")
	cmd.Flags().UintVar(&scenarioID, "scenario", 0, "Scenario ID")
	cmd.Flags().UintVar(&strategyID, "strategy", 0, "Strategy ID")
	cmd.Flags().StringVar(&configPath, "config", "", "YAML file with run configuration")

	return cmd
}

func newExperimentsUpdateCmd() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update experiment metadata",
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

			req := client.UpdateExperimentRequest{
				Name:        optString(cmd.Flags().Changed("name"), name),
				Description: optString(cmd.Flags().Changed("description"), description),
			}

			experiment, err := sess.Client().UpdateExperiment(id, req)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Experiment %d updated\n", experiment.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&description, "description", "", "New description")

	return cmd
}

func newExperimentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an experiment",
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

			if err := sess.Client().DeleteExperiment(id); err != nil {
				return err
			}

			fmt.Printf("✓ Experiment %d deleted\n", id)
			return nil
		},
	}
}

func newExperimentsStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <id>",
		Short: "Start an experiment run",
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

			msg, err := sess.Client().StartExperiment(id)
			if err != nil {
				return err
			}

			fmt.Printf("✓ %s\n", msg.Message)
			fmt.Printf("\nFollow progress with: batsim experiments watch %d\n", id)
			return nil
		},
	}
}

func newExperimentsStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Cancel a running experiment",
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

			msg, err := sess.Client().StopExperiment(id)
			if err != nil {
				return err
			}

			fmt.Printf("✓ %s\n", msg.Message)
			return nil
		},
	}
}

func newExperimentsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <id>",
		Short: "Show the live progress of an experiment",
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

			status, err := sess.Client().GetExperimentStatus(id)
			if err != nil {
				return err
			}

			printExperimentStatus(status)
			return nil
		},
	}
}

func newExperimentsWatchCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch <id>",
		Short: "Poll experiment progress until it finishes",
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

			for {
				status, err := sess.Client().GetExperimentStatus(id)
				if err != nil {
					return err
				}

				fmt.Printf("%s  %d%% (%d/%d jobs)\n",
					status.Status, status.ProgressPercentage,
					status.CompletedJobs, status.TotalJobs)

				switch status.Status {
				case "completed", "failed", "cancelled":
					if status.Status == "completed" {
						fmt.Printf("\nFetch results with: batsim results by-experiment %d\n", id)
					}
					return nil
				}

				time.Sleep(interval)
			}
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval")

	return cmd
}

func printExperiment(experiment *client.Experiment) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", experiment.ID)
	fmt.Fprintf(w, "Name:\t%s\n", experiment.Name)
	if experiment.Description != "" {
		fmt.Fprintf(w, "Description:\t%s\n", experiment.Description)
	}
	fmt.Fprintf(w, "Scenario:\t%s (id %d)\n", experiment.ScenarioName, experiment.ScenarioID)
	fmt.Fprintf(w, "Strategy:\t%s (id %d)\n", experiment.StrategyName, experiment.StrategyID)
	fmt.Fprintf(w, "Status:\t%s\n", experiment.Status)
	fmt.Fprintf(w, "Progress:\t%d%% (%d/%d jobs)\n",
		experiment.ProgressPercentage, experiment.CompletedJobs, experiment.TotalJobs)
	if experiment.SimRunID != "" {
		fmt.Fprintf(w, "Run ID:\t%s\n", experiment.SimRunID)
	}
	if experiment.StartTime != "" {
		fmt.Fprintf(w, "Started:\t%s\n", experiment.StartTime)
	}
	if experiment.EndTime != "" {
		fmt.Fprintf(w, "Ended:\t%s\n", experiment.EndTime)
	}
	fmt.Fprintf(w, "Created by:\t%s\n", experiment.CreatorUsername)
	w.Flush()
}

func printExperimentStatus(status *client.ExperimentStatus) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Status:\t%s\n", status.Status)
	fmt.Fprintf(w, "Progress:\t%d%%\n", status.ProgressPercentage)
	fmt.Fprintf(w, "Jobs:\t%d/%d\n", status.CompletedJobs, status.TotalJobs)
	if status.StartTime != "" {
		fmt.Fprintf(w, "Started:\t%s\n", status.StartTime)
	}
	if status.EndTime != "" {
		fmt.Fprintf(w, "Ended:\t%s\n", status.EndTime)
	}
	w.Flush()
}

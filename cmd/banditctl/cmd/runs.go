package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ragops/banditd/pkg/models"
)

var runsStatusFilter string

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List training runs",
	Long:  `List the recorded training runs, newest first. Use --status to filter.`,
	RunE:  runRunsList,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one training run",
	Args:  cobra.ExactArgs(1),
	RunE:  runRunsShow,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsCmd.Flags().StringVar(&runsStatusFilter, "status", "", "filter by status: queued, running, completed, failed, canceled")
}

func runRunsList(cmd *cobra.Command, args []string) error {
	runs, err := GetClient().ListRuns(runsStatusFilter)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, _ := json.MarshalIndent(runs, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Status", "Progress", "Cold Start", "Created", "Duration")

	for _, run := range runs {
		table.Append(
			run.ID,
			string(run.Status),
			fmt.Sprintf("%d/%d", run.CompletedUnits, run.TotalUnits),
			fmt.Sprintf("%v", run.ColdStart),
			run.CreatedAt.Format(time.RFC3339),
			runDuration(&run),
		)
	}

	table.Render()
	return nil
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	run, err := GetClient().GetRun(args[0])
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		output, _ := json.MarshalIndent(run, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("ID", run.ID)
	table.Append("Status", string(run.Status))
	table.Append("Progress", fmt.Sprintf("%d/%d", run.CompletedUnits, run.TotalUnits))
	table.Append("Cold Start", fmt.Sprintf("%v", run.ColdStart))
	table.Append("Created", run.CreatedAt.Format(time.RFC3339))
	if run.StartedAt != nil {
		table.Append("Started", run.StartedAt.Format(time.RFC3339))
	}
	if run.CompletedAt != nil {
		table.Append("Completed", run.CompletedAt.Format(time.RFC3339))
	}
	if run.Error != "" {
		table.Append("Error", run.Error)
	}

	table.Render()
	return nil
}

func runDuration(run *models.Run) string {
	if run.StartedAt == nil {
		return "-"
	}
	end := time.Now()
	if run.CompletedAt != nil {
		end = *run.CompletedAt
	}
	return end.Sub(*run.StartedAt).Round(time.Second).String()
}

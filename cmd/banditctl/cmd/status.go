package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ragops/banditd/pkg/bandit"
)

var (
	watchStatus   bool
	watchInterval time.Duration
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show training status",
	Long:  `Show the current bandit training status: enabled flag, cycle progress, cold start and last error.`,
	RunE:  runStatus,
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable strategy selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable strategy selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(false)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)

	statusCmd.Flags().BoolVar(&watchStatus, "watch", false, "refresh the status until the cycle completes")
	statusCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "refresh interval for --watch")
}

func runStatus(cmd *cobra.Command, args []string) error {
	c := GetClient()

	if !watchStatus {
		snap, err := c.Status()
		if err != nil {
			return err
		}
		displayStatus(snap)
		return nil
	}

	for {
		snap, err := c.Status()
		if err != nil {
			return err
		}

		fmt.Print("\033[H\033[2J") // Clear screen
		displayStatus(snap)

		if !snap.Started || snap.Done {
			return nil
		}
		time.Sleep(watchInterval)
	}
}

func setEnabled(enabled bool) error {
	snap, err := GetClient().SetEnabled(enabled)
	if err != nil {
		return err
	}
	displayStatus(snap)
	return nil
}

func displayStatus(snap *bandit.Snapshot) {
	if IsJSONOutput() {
		output, _ := json.MarshalIndent(snap, "", "  ")
		fmt.Println(string(output))
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	table.Append("Enabled", fmt.Sprintf("%v", snap.Enabled))
	table.Append("Started", fmt.Sprintf("%v", snap.Started))
	table.Append("Done", fmt.Sprintf("%v", snap.Done))
	table.Append("Cold Start", fmt.Sprintf("%v", snap.ColdStart))
	if snap.Total > 0 {
		table.Append("Progress", fmt.Sprintf("%d/%d", snap.Completed, snap.Total))
	} else {
		table.Append("Progress", fmt.Sprintf("%d", snap.Completed))
	}
	if snap.LastError != nil {
		table.Append("Last Error", *snap.LastError)
	}

	table.Render()
}
